package wallet

import (
	"github.com/NikitaPirate/glisk/core"
	"github.com/NikitaPirate/glisk/crypto"
)

// Wallet holds a key pair and provides transaction-building helpers for
// every engine operation.
type Wallet struct {
	priv crypto.PrivateKey
	pub  crypto.PublicKey
}

// New creates a Wallet from an existing private key.
func New(priv crypto.PrivateKey) *Wallet {
	return &Wallet{priv: priv, pub: priv.Public()}
}

// Generate creates a Wallet with a freshly generated key pair.
func Generate() (*Wallet, error) {
	priv, _, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	return New(priv), nil
}

// PrivKey returns the raw private key (handle with care).
func (w *Wallet) PrivKey() crypto.PrivateKey {
	return w.priv
}

// PubKey returns the hex-encoded ed25519 public key (used as "from" address).
func (w *Wallet) PubKey() string {
	return w.pub.Hex()
}

// Address returns the short human-readable address (first 20 bytes of SHA-256(pubkey)).
func (w *Wallet) Address() string {
	return w.pub.Address()
}

// NewTx creates a signed transaction. chainID must match the target network.
// nonce should match the account's current nonce.
func (w *Wallet) NewTx(chainID string, typ core.TxType, nonce, fee uint64, payload any) (*core.Transaction, error) {
	tx, err := core.NewTransaction(chainID, typ, w.pub.Hex(), nonce, fee, payload)
	if err != nil {
		return nil, err
	}
	tx.Sign(w.priv)
	return tx, nil
}

// Transfer creates a signed fund transfer transaction.
func (w *Wallet) Transfer(chainID, to string, amount, nonce, fee uint64) (*core.Transaction, error) {
	return w.NewTx(chainID, core.TxTransfer, nonce, fee, core.TransferPayload{
		To:     to,
		Amount: amount,
	})
}

// MintBatch creates a signed batch purchase crediting author with the prompt
// share. Pass author == "" to credit the sender.
func (w *Wallet) MintBatch(chainID, author string, quantity, payment, nonce, fee uint64) (*core.Transaction, error) {
	return w.NewTx(chainID, core.TxMintBatch, nonce, fee, core.MintBatchPayload{
		PromptAuthor: author,
		Quantity:     quantity,
		Payment:      payment,
	})
}

// Claim creates a signed withdrawal of the sender's full claimable balance.
func (w *Wallet) Claim(chainID string, nonce, fee uint64) (*core.Transaction, error) {
	return w.NewTx(chainID, core.TxClaim, nonce, fee, core.ClaimPayload{})
}

// WithdrawPool creates a signed pool payout (Owner only).
func (w *Wallet) WithdrawPool(chainID, recipient string, amount, nonce, fee uint64) (*core.Transaction, error) {
	return w.NewTx(chainID, core.TxWithdrawPool, nonce, fee, core.WithdrawPoolPayload{
		Recipient: recipient,
		Amount:    amount,
	})
}

// Sweep creates a signed post-grace-period sweep of the listed accounts
// (Owner only).
func (w *Wallet) Sweep(chainID string, accounts []string, nonce, fee uint64) (*core.Transaction, error) {
	return w.NewTx(chainID, core.TxSweep, nonce, fee, core.SweepPayload{Accounts: accounts})
}

// SetPrice creates a signed unit price update (Owner or Operator).
func (w *Wallet) SetPrice(chainID string, price, nonce, fee uint64) (*core.Transaction, error) {
	return w.NewTx(chainID, core.TxSetPrice, nonce, fee, core.SetPricePayload{Price: price})
}

// SetPlaceholder creates a signed placeholder descriptor update (Owner only).
func (w *Wallet) SetPlaceholder(chainID, descriptor string, nonce, fee uint64) (*core.Transaction, error) {
	return w.NewTx(chainID, core.TxSetPlaceholder, nonce, fee, core.SetPlaceholderPayload{Descriptor: descriptor})
}

// Reveal creates a signed all-or-nothing batch reveal (Owner or Operator).
func (w *Wallet) Reveal(chainID string, unitIDs []uint64, descriptors []string, nonce, fee uint64) (*core.Transaction, error) {
	return w.NewTx(chainID, core.TxReveal, nonce, fee, core.RevealPayload{
		UnitIDs:     unitIDs,
		Descriptors: descriptors,
	})
}

// EndSeason creates a signed permanent season close (Owner only).
func (w *Wallet) EndSeason(chainID string, nonce, fee uint64) (*core.Transaction, error) {
	return w.NewTx(chainID, core.TxEndSeason, nonce, fee, core.EndSeasonPayload{})
}

// SetRoyalty creates a signed royalty tuple update (Owner only).
func (w *Wallet) SetRoyalty(chainID, receiver string, rateBps uint32, nonce, fee uint64) (*core.Transaction, error) {
	return w.NewTx(chainID, core.TxSetRoyalty, nonce, fee, core.SetRoyaltyPayload{
		Receiver: receiver,
		RateBps:  rateBps,
	})
}

// GrantOperator creates a signed operator grant (Owner only).
func (w *Wallet) GrantOperator(chainID, account string, nonce, fee uint64) (*core.Transaction, error) {
	return w.NewTx(chainID, core.TxGrantOperator, nonce, fee, core.GrantOperatorPayload{Account: account})
}

// RevokeOperator creates a signed operator revocation (Owner only).
func (w *Wallet) RevokeOperator(chainID, account string, nonce, fee uint64) (*core.Transaction, error) {
	return w.NewTx(chainID, core.TxRevokeOperator, nonce, fee, core.RevokeOperatorPayload{Account: account})
}

// TransferOwnership creates a signed owner handover (Owner only).
func (w *Wallet) TransferOwnership(chainID, newOwner string, nonce, fee uint64) (*core.Transaction, error) {
	return w.NewTx(chainID, core.TxTransferOwnership, nonce, fee, core.TransferOwnershipPayload{NewOwner: newOwner})
}
