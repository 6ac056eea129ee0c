package config

// maxReorgDistance is the static, hand-maintained table of per-chain reorg
// horizons (in blocks) shipped with the binary. A chain absent from this
// table cannot be served by the fabric: construction must fail rather than
// guess a safe-looking default, since guessing wrong silently breaks
// cache correctness.
var maxReorgDistance = map[uint64]uint64{
	1:        64,  // Ethereum mainnet
	5:        64,  // Goerli
	10:       20,  // Optimism
	56:       20,  // BNB Smart Chain
	137:      256, // Polygon PoS
	8453:     20,  // Base
	42161:    20,  // Arbitrum One
	43114:    10,  // Avalanche C-Chain
	11155111: 64,  // Sepolia
}

// MaxReorgDistance returns the configured reorg horizon for chainID.
func MaxReorgDistance(chainID uint64) (uint64, bool) {
	d, ok := maxReorgDistance[chainID]
	return d, ok
}
