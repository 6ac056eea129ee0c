// Command rpcnode-demo exposes the fabric's registry over a tiny HTTP
// surface: POST /rpc/<chainId> forwards a JSON-RPC call through the
// quorum router for that chain, and /metrics serves the registered
// Prometheus collectors. It exists to exercise registry.Registry
// end-to-end; the orchestration around bundle construction, monitors and
// finalizers that actually consumes the fabric in production is out of
// scope here.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relayfabric/rpcnode/config"
	"github.com/relayfabric/rpcnode/log"
	"github.com/relayfabric/rpcnode/registry"
)

const httpCallBudget = 2 * time.Minute

var listenAddr = flag.String("addr", ":8080", "Listen address")

var reg *registry.Registry

func main() {
	flag.Parse()

	var err error
	reg, err = registry.New(config.OSLookup, prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatalf("cannot build registry: %s", err)
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-c
		log.Infof("signal received, shutting down")
		os.Exit(0)
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/rpc/", serveRPC)
	mux.Handle("/metrics", promhttp.Handler())

	ln, err := net.Listen("tcp4", *listenAddr)
	if err != nil {
		log.Fatalf("cannot listen for -addr=%q: %s", *listenAddr, err)
	}

	log.Infof("serving on %q", *listenAddr)
	log.Fatalf("server error: %s", http.Serve(ln, mux))
}

type rpcRequest struct {
	Method string `json:"method"`
	Params []any  `json:"params"`
}

func serveRPC(w http.ResponseWriter, r *http.Request) {
	chainID, err := strconv.ParseUint(strings.TrimPrefix(r.URL.Path, "/rpc/"), 10, 64)
	if err != nil {
		http.Error(w, "invalid chain id", http.StatusBadRequest)
		return
	}

	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	router, err := reg.Get(chainID)
	if err != nil {
		log.Errorf("rpc: cannot resolve router for chain %d: %s", chainID, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), httpCallBudget)
	defer cancel()

	result, err := router.Send(ctx, req.Method, req.Params)
	if err != nil {
		log.Warnf("rpc: chain %d method %s failed: %s", chainID, req.Method, err)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(result.String()))
}
