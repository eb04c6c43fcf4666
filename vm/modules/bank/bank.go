// Package bank moves custodied funds between accounts. It is a runtime-level
// convenience so participants can fund each other's mints; engine balances
// (claimable, pool) are never touched here.
package bank

import (
	"encoding/json"
	"fmt"

	"github.com/NikitaPirate/glisk/core"
	"github.com/NikitaPirate/glisk/crypto"
	"github.com/NikitaPirate/glisk/events"
	"github.com/NikitaPirate/glisk/vm"
)

func init() {
	vm.Register(core.TxTransfer, handleTransfer)
}

func handleTransfer(ctx *vm.Context, payload json.RawMessage) error {
	var p core.TransferPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode transfer payload: %w", err)
	}
	if p.Amount == 0 {
		return fmt.Errorf("transfer amount must be > 0")
	}
	if p.To == "" {
		return fmt.Errorf("transfer to address required")
	}
	if _, err := crypto.PubKeyFromHex(p.To); err != nil {
		return fmt.Errorf("invalid to pubkey: %w", err)
	}

	sender, err := ctx.State.GetAccount(ctx.Tx.From)
	if err != nil {
		return err
	}
	if sender.Balance < p.Amount {
		return fmt.Errorf("insufficient balance: have %d, need %d", sender.Balance, p.Amount)
	}
	sender.Balance -= p.Amount
	if err := ctx.State.SetAccount(sender); err != nil {
		return err
	}

	recipient, err := ctx.State.GetAccount(p.To)
	if err != nil {
		return err
	}
	recipient.Balance += p.Amount
	if err := ctx.State.SetAccount(recipient); err != nil {
		return err
	}

	ctx.Emit(events.EventFundTransfer, map[string]any{
		"from":   ctx.Tx.From,
		"to":     p.To,
		"amount": p.Amount,
	})
	return nil
}
