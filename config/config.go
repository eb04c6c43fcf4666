// Package config loads node configuration and builds the genesis block that
// seeds the issuance engine.
package config

import (
	"encoding/json"
	"os"
)

// GenesisConfig describes the ledger's initial state: funded accounts plus
// the issuance engine's starting parameters.
type GenesisConfig struct {
	ChainID         string            `json:"chain_id"`
	Owner           string            `json:"owner"`     // engine owner pubkey hex
	Operators       []string          `json:"operators"` // initial operator pubkey hexes
	UnitPrice       uint64            `json:"unit_price"`
	Placeholder     string            `json:"placeholder"` // descriptor for unrevealed units
	RoyaltyReceiver string            `json:"royalty_receiver"`
	RoyaltyRateBps  uint32            `json:"royalty_rate_bps"`
	Alloc           map[string]uint64 `json:"alloc"` // pubkey hex → initial balance
}

// Config holds all node configuration.
type Config struct {
	NodeID       string        `json:"node_id"`
	DataDir      string        `json:"data_dir"`
	RPCPort      int           `json:"rpc_port"`
	RPCAuthToken string        `json:"rpc_auth_token"` // empty → no auth
	MaxBlockTxs  int           `json:"max_block_txs"`  // max transactions per block; 0 → 500
	Sequencer    string        `json:"sequencer"`      // authorised block producer pubkey hex
	Genesis      GenesisConfig `json:"genesis"`
}

// DefaultConfig returns a single-node development configuration.
func DefaultConfig() *Config {
	return &Config{
		NodeID:      "node0",
		DataDir:     "./data",
		RPCPort:     8545,
		MaxBlockTxs: 500,
		Genesis: GenesisConfig{
			ChainID:     "glisk-dev",
			UnitPrice:   1_000,
			Placeholder: "ipfs://placeholder",
			Alloc:       map[string]uint64{},
		},
	}
}

// Load reads a JSON config file from path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to path as formatted JSON.
func Save(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
