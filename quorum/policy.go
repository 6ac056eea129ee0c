package quorum

import "github.com/ethereum/go-ethereum/common/hexutil"

// requiredQuorum computes the required agreement count Q for a given
// method/params pair: methods whose honest answer is a function of
// finalized-enough state require
// nodeQuorumThreshold agreement; methods whose answer legitimately varies
// across honest nodes (head position, mempool) require only one response,
// else the router would self-deadlock waiting for agreement that can never
// come.
func requiredQuorum(method string, params []any, threshold int) int {
	switch method {
	case "eth_getLogs":
		return threshold
	case "eth_getBlockByNumber":
		if blockTagIsNumeric(params, 0) {
			return threshold
		}
		return 1
	case "eth_call":
		if blockTagIsNumeric(params, 1) {
			return threshold
		}
		return 1
	default:
		return 1
	}
}

// blockTagIsNumeric reports whether params[idx] is a block tag that names a
// specific numeric block rather than a relative tag like "latest",
// "pending" or "earliest".
func blockTagIsNumeric(params []any, idx int) bool {
	if idx >= len(params) {
		return false
	}
	s, ok := params[idx].(string)
	if !ok {
		return false
	}
	_, err := hexutil.DecodeUint64(s)
	return err == nil
}

// excludedFields returns the result-equality field exclusions for method:
// eth_getBlockByNumber's "miner" field is known to diverge between honest
// providers during node-software transitions.
func excludedFields(method string) []string {
	if method == "eth_getBlockByNumber" {
		return []string{"miner"}
	}
	return nil
}
