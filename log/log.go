// Package log provides the fabric's minimal operator-facing logging: a
// handful of level-tagged loggers over the standard library, with no
// structured sink. The surrounding agent owns process-level logging setup
// and signal handling; this package only needs to be safely importable by
// the fabric's own packages and their tests, so it does not register
// flags or trap signals the way a standalone binary would.
package log

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync/atomic"
)

var (
	stdLogFlags     = log.LstdFlags | log.Lshortfile | log.LUTC
	outputCallDepth = 2

	DebugLogger = log.New(os.Stderr, "DEBUG: ", stdLogFlags)
	InfoLogger  = log.New(os.Stderr, "INFO: ", stdLogFlags)
	WarnLogger  = log.New(os.Stderr, "WARN: ", stdLogFlags)
	ErrorLogger = log.New(os.Stderr, "ERROR: ", stdLogFlags)
	FatalLogger = log.New(os.Stderr, "FATAL: ", log.LstdFlags|log.Llongfile|log.LUTC)

	debugEnabled atomic.Bool
)

// SetDebug toggles Debugf output. The registry sets this once from
// NODE_LOG_DEBUG during construction.
func SetDebug(enabled bool) {
	debugEnabled.Store(enabled)
}

// SetOutput redirects the debug, info, warn and error loggers to w, for
// tests that assert on emitted lines. FatalLogger keeps writing to stderr.
func SetOutput(w io.Writer) {
	DebugLogger.SetOutput(w)
	InfoLogger.SetOutput(w)
	WarnLogger.SetOutput(w)
	ErrorLogger.SetOutput(w)
}

func Debugf(format string, args ...interface{}) {
	if !debugEnabled.Load() {
		return
	}
	DebugLogger.Output(outputCallDepth, fmt.Sprintf(format, args...))
}

func Infof(format string, args ...interface{}) {
	InfoLogger.Output(outputCallDepth, fmt.Sprintf(format, args...))
}

// Warnf logs non-fatal conditions the operator should investigate, such as
// a quorum answer formed despite provider disagreement.
func Warnf(format string, args ...interface{}) {
	WarnLogger.Output(outputCallDepth, fmt.Sprintf(format, args...))
}

func Errorf(format string, args ...interface{}) {
	ErrorLogger.Output(outputCallDepth, fmt.Sprintf(format, args...))
}

func Fatalf(format string, args ...interface{}) {
	FatalLogger.Output(outputCallDepth, fmt.Sprintf(format, args...))
	os.Exit(1)
}
