package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/NikitaPirate/glisk/crypto"
)

// TxType identifies the kind of operation a transaction performs.
type TxType string

const (
	TxTransfer          TxType = "transfer"
	TxMintBatch         TxType = "mint_batch"
	TxClaim             TxType = "claim"
	TxWithdrawPool      TxType = "withdraw_pool"
	TxSweep             TxType = "sweep"
	TxSetPrice          TxType = "set_price"
	TxSetPlaceholder    TxType = "set_placeholder"
	TxReveal            TxType = "reveal"
	TxEndSeason         TxType = "end_season"
	TxSetRoyalty        TxType = "set_royalty"
	TxGrantOperator     TxType = "grant_operator"
	TxRevokeOperator    TxType = "revoke_operator"
	TxTransferOwnership TxType = "transfer_ownership"
)

// Transaction is the atomic unit of work on the ledger.
// From holds the sender's full hex-encoded ed25519 public key (64 chars).
// ChainID pins the transaction to one network to prevent cross-chain replay.
// Signature covers all fields except Signature itself.
type Transaction struct {
	ID        string          `json:"id"`
	ChainID   string          `json:"chain_id"`
	Type      TxType          `json:"type"`
	From      string          `json:"from"` // hex-encoded ed25519 public key
	Nonce     uint64          `json:"nonce"`
	Fee       uint64          `json:"fee"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
	Signature string          `json:"signature"`
}

// signingBody holds the fields that are covered by the signature.
type signingBody struct {
	ChainID   string          `json:"chain_id"`
	Type      TxType          `json:"type"`
	From      string          `json:"from"`
	Nonce     uint64          `json:"nonce"`
	Fee       uint64          `json:"fee"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Hash returns a deterministic hash of the transaction (sans Signature).
// Returns an empty string if marshalling fails (which cannot happen in practice).
func (tx *Transaction) Hash() string {
	body := signingBody{
		ChainID:   tx.ChainID,
		Type:      tx.Type,
		From:      tx.From,
		Nonce:     tx.Nonce,
		Fee:       tx.Fee,
		Timestamp: tx.Timestamp,
		Payload:   tx.Payload,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return ""
	}
	return crypto.Hash(data)
}

// Sign computes the signature and sets ID.
func (tx *Transaction) Sign(priv crypto.PrivateKey) {
	hash := tx.Hash()
	tx.Signature = crypto.Sign(priv, []byte(hash))
	tx.ID = hash
}

// Verify checks the signature and that From is a valid public key.
func (tx *Transaction) Verify() error {
	if tx.From == "" {
		return errors.New("missing from field")
	}
	pub, err := crypto.PubKeyFromHex(tx.From)
	if err != nil {
		return fmt.Errorf("invalid from (must be ed25519 pubkey hex): %w", err)
	}
	return crypto.Verify(pub, []byte(tx.Hash()), tx.Signature)
}

// NewTransaction creates an unsigned transaction with the current timestamp.
func NewTransaction(chainID string, typ TxType, from string, nonce, fee uint64, payload any) (*Transaction, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return &Transaction{
		ChainID:   chainID,
		Type:      typ,
		From:      from,
		Nonce:     nonce,
		Fee:       fee,
		Timestamp: time.Now().UnixNano(),
		Payload:   raw,
	}, nil
}

// ---- Payload types ----

// TransferPayload moves custodied funds between accounts.
type TransferPayload struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

// MintBatchPayload purchases a batch of sequential units. Payment is debited
// from the sender and split between the prompt author's claimable balance and
// the shared pool.
type MintBatchPayload struct {
	PromptAuthor string `json:"prompt_author"` // pubkey hex credited with the author share
	Quantity     uint64 `json:"quantity"`
	Payment      uint64 `json:"payment"`
}

// ClaimPayload withdraws the sender's full claimable balance. No fields:
// the amount is whatever is currently credited (possibly zero).
type ClaimPayload struct{}

// WithdrawPoolPayload pays out part of the shared pool (Owner only).
type WithdrawPoolPayload struct {
	Recipient string `json:"recipient"` // pubkey hex
	Amount    uint64 `json:"amount"`
}

// SweepPayload folds the listed accounts' unclaimed balances into the pool
// after the post-season grace period (Owner only).
type SweepPayload struct {
	Accounts []string `json:"accounts"` // pubkey hexes
}

// SetPricePayload updates the per-unit mint price (Owner or Operator).
type SetPricePayload struct {
	Price uint64 `json:"price"`
}

// SetPlaceholderPayload replaces the global descriptor served for all
// not-yet-revealed units (Owner only).
type SetPlaceholderPayload struct {
	Descriptor string `json:"descriptor"`
}

// RevealPayload permanently assigns descriptors to units. UnitIDs and
// Descriptors are parallel; the whole batch succeeds or fails together.
type RevealPayload struct {
	UnitIDs     []uint64 `json:"unit_ids"`
	Descriptors []string `json:"descriptors"`
}

// EndSeasonPayload closes the season permanently (Owner only).
type EndSeasonPayload struct{}

// SetRoyaltyPayload overwrites the global royalty tuple (Owner only).
type SetRoyaltyPayload struct {
	Receiver string `json:"receiver"` // pubkey hex
	RateBps  uint32 `json:"rate_bps"`
}

// GrantOperatorPayload grants the Operator role (Owner only).
type GrantOperatorPayload struct {
	Account string `json:"account"` // pubkey hex
}

// RevokeOperatorPayload revokes the Operator role (Owner only).
type RevokeOperatorPayload struct {
	Account string `json:"account"` // pubkey hex
}

// TransferOwnershipPayload hands the Owner role to a new account (Owner only).
type TransferOwnershipPayload struct {
	NewOwner string `json:"new_owner"` // pubkey hex
}
