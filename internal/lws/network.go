package lws

// NetworkParams is the configuration value that replaces the source's
// reliance on a global network tag. It is constructed once in
// cmd/lws-scanner, which passes GenesisHash to the Supervisor and
// RetentionBlocks to db.Open; no package in this module reads a
// process-global network constant.
type NetworkParams struct {
	// Name identifies the network for logging ("mainnet", "testnet", ...).
	Name string

	// DefaultPeerPort is the network's conventional daemon port. Nothing
	// in this module reads it: peer.Dial uses the configured daemon URL
	// as given.
	DefaultPeerPort uint16

	// GenesisHash is the expected hash of block 0, used by chain sync to
	// sanity check a peer before trusting its locator responses.
	GenesisHash [32]byte

	// RetentionBlocks is K: the block-info table is kept dense over
	// [scan_tip-K, scan_tip].
	RetentionBlocks uint64
}

// MainNet is a representative production network configuration. Callers
// are expected to override fields as needed; this is a convenience default,
// not an ambient singleton read by library code.
func MainNet() NetworkParams {
	return NetworkParams{
		Name:            "mainnet",
		DefaultPeerPort: 18082,
		RetentionBlocks: 100,
	}
}
