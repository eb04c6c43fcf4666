package core_test

import (
	"testing"

	"github.com/NikitaPirate/glisk/core"
	"github.com/NikitaPirate/glisk/crypto"
	"github.com/NikitaPirate/glisk/wallet"
)

// TestTransactionSignVerify ensures transaction signing and verification work.
func TestTransactionSignVerify(t *testing.T) {
	w, err := wallet.Generate()
	if err != nil {
		t.Fatal(err)
	}

	tx, err := w.NewTx("glisk-test", core.TxTransfer, 0, 0, core.TransferPayload{
		To:     "deadbeef",
		Amount: 100,
	})
	if err != nil {
		t.Fatalf("NewTx: %v", err)
	}
	if tx.ID == "" {
		t.Error("tx ID should be set after signing")
	}
	if err := tx.Verify(); err != nil {
		t.Errorf("Verify failed: %v", err)
	}

	// Tamper with the fee to check that verification catches it.
	tx.Fee = 999
	if err := tx.Verify(); err == nil {
		t.Error("tampered tx should fail verification")
	}
}

// TestTransactionChainIDCoveredBySignature ensures the chain id cannot be
// rewritten to replay a transaction on another network.
func TestTransactionChainIDCoveredBySignature(t *testing.T) {
	w, err := wallet.Generate()
	if err != nil {
		t.Fatal(err)
	}
	tx, err := w.NewTx("glisk-test", core.TxClaim, 0, 0, core.ClaimPayload{})
	if err != nil {
		t.Fatal(err)
	}

	tx.ChainID = "glisk-main"
	if err := tx.Verify(); err == nil {
		t.Error("rewritten chain id should fail verification")
	}
}

// TestTransactionHashDeterministic checks that Hash depends only on the
// signed fields and is stable across calls.
func TestTransactionHashDeterministic(t *testing.T) {
	w, _ := wallet.Generate()
	tx, err := w.NewTx("glisk-test", core.TxSetPrice, 3, 1, core.SetPricePayload{Price: 500})
	if err != nil {
		t.Fatal(err)
	}
	if tx.Hash() != tx.Hash() {
		t.Error("Hash is not stable")
	}
	if tx.Hash() != tx.ID {
		t.Error("ID should equal the signing hash")
	}

	// The signature itself is not part of the hash.
	sig := tx.Signature
	tx.Signature = "ffff"
	if tx.Hash() != tx.ID {
		t.Error("signature must not affect the hash")
	}
	tx.Signature = sig
}

// TestBlockHash ensures that hashing a block is deterministic.
func TestBlockHash(t *testing.T) {
	priv, pub, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	block := core.NewBlock(1, "0000", pub.Hex(), nil)
	block.Sign(priv)

	if block.Hash == "" {
		t.Error("hash should be set after signing")
	}
	if block.ComputeHash() != block.Hash {
		t.Error("ComputeHash() does not match stored hash")
	}
}
