package config

import (
	"fmt"
	"strings"

	"github.com/NikitaPirate/glisk/core"
	"github.com/NikitaPirate/glisk/crypto"
)

// GenesisHash is a canonical all-zeros previous hash for the genesis block.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// CreateGenesisBlock builds and signs block #0: it funds the alloc accounts,
// seeds the issuance engine (owner, operators, price, placeholder, royalty,
// allocation cursor at 1) and commits state.
func CreateGenesisBlock(cfg *Config, state core.State, sequencerPriv crypto.PrivateKey) (*core.Block, error) {
	sequencerPub := sequencerPriv.Public()

	owner := cfg.Genesis.Owner
	if owner == "" {
		owner = sequencerPub.Hex()
	} else if _, err := crypto.PubKeyFromHex(owner); err != nil {
		return nil, fmt.Errorf("genesis owner: %w", err)
	}

	operators := make(map[string]bool, len(cfg.Genesis.Operators))
	for _, op := range cfg.Genesis.Operators {
		if _, err := crypto.PubKeyFromHex(op); err != nil {
			return nil, fmt.Errorf("genesis operator %q: %w", op, err)
		}
		operators[op] = true
	}

	eng := &core.EngineState{
		Owner:           owner,
		Operators:       operators,
		UnitPrice:       cfg.Genesis.UnitPrice,
		NextUnitID:      1,
		Placeholder:     cfg.Genesis.Placeholder,
		RoyaltyReceiver: cfg.Genesis.RoyaltyReceiver,
		RoyaltyRateBps:  cfg.Genesis.RoyaltyRateBps,
	}
	if eng.RoyaltyReceiver == "" {
		eng.RoyaltyReceiver = owner
	}
	if err := state.SetEngine(eng); err != nil {
		return nil, err
	}

	// Credit all alloc accounts
	for pubkeyHex, balance := range cfg.Genesis.Alloc {
		acc := &core.Account{
			Address: pubkeyHex,
			Balance: balance,
			Nonce:   0,
		}
		if err := state.SetAccount(acc); err != nil {
			return nil, err
		}
	}

	stateRoot := state.ComputeRoot()
	if err := state.Commit(); err != nil {
		return nil, err
	}

	block := core.NewBlock(0, GenesisHash, sequencerPub.Hex(), nil)
	block.Header.StateRoot = stateRoot
	// Embed the chain ID in TxRoot so the genesis hash identifies the network.
	block.Header.TxRoot = crypto.Hash([]byte(cfg.Genesis.ChainID))
	block.Sign(sequencerPriv)
	return block, nil
}

// IsGenesisHash returns true if the hash is the canonical genesis prev-hash.
func IsGenesisHash(h string) bool {
	return strings.Count(h, "0") == len(h) && len(h) == 64
}
