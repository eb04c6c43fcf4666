// Package minting implements the batch purchase entry point: it validates
// the request, custodies the payment, splits it between the prompt author's
// claimable balance and the shared pool, and allocates sequential unit IDs.
// It is the only writer of the allocation cursor.
package minting

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/NikitaPirate/glisk/core"
	"github.com/NikitaPirate/glisk/crypto"
	"github.com/NikitaPirate/glisk/events"
	"github.com/NikitaPirate/glisk/vm"
)

func init() {
	vm.Register(core.TxMintBatch, handleMintBatch)
}

func handleMintBatch(ctx *vm.Context, payload json.RawMessage) error {
	var p core.MintBatchPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode mint_batch payload: %w", err)
	}

	author := p.PromptAuthor
	if author == "" {
		author = ctx.Tx.From
	} else {
		// Validate that the credited author is a real ed25519 pubkey.
		if _, err := crypto.PubKeyFromHex(author); err != nil {
			return fmt.Errorf("invalid prompt_author pubkey: %w", err)
		}
	}

	eng, err := ctx.State.GetEngine()
	if err != nil {
		return fmt.Errorf("engine state: %w", err)
	}
	if eng.SeasonEnded {
		return core.ErrMintingClosed
	}
	if p.Quantity == 0 || p.Quantity > core.MaxBatch {
		return fmt.Errorf("%w: %d (max %d)", core.ErrInvalidQuantity, p.Quantity, core.MaxBatch)
	}
	if eng.UnitPrice != 0 && p.Quantity > math.MaxUint64/eng.UnitPrice {
		return fmt.Errorf("price overflow: %d units at %d", p.Quantity, eng.UnitPrice)
	}
	totalDue := eng.UnitPrice * p.Quantity
	if p.Payment < totalDue {
		return fmt.Errorf("%w: got %d need %d", core.ErrInsufficientPayment, p.Payment, totalDue)
	}

	// Custody the full payment. From here on every debited token is tracked
	// as either claimable or pool balance, which is the conservation invariant.
	minter, err := ctx.State.GetAccount(ctx.Tx.From)
	if err != nil {
		return fmt.Errorf("minter account: %w", err)
	}
	if minter.Balance < p.Payment {
		return fmt.Errorf("insufficient balance: have %d need %d", minter.Balance, p.Payment)
	}
	minter.Balance -= p.Payment
	if err := ctx.State.SetAccount(minter); err != nil {
		return err
	}

	// Split: integer half to the author, remainder and any overpayment to the
	// pool. Credits happen before ID allocation so accounting and issuance
	// read as one step.
	authorShare := totalDue / 2
	poolShare := p.Payment - authorShare

	claimable, err := ctx.State.Claimable(author)
	if err != nil {
		return err
	}
	if authorShare > math.MaxUint64-claimable {
		return fmt.Errorf("claimable overflow for %s", author)
	}
	if err := ctx.State.SetClaimable(author, claimable+authorShare); err != nil {
		return err
	}
	if poolShare > math.MaxUint64-eng.PoolBalance {
		return fmt.Errorf("pool balance overflow")
	}
	eng.PoolBalance += poolShare

	if p.Quantity > math.MaxUint64-eng.NextUnitID {
		return fmt.Errorf("unit id overflow")
	}
	firstID := eng.NextUnitID
	for i := uint64(0); i < p.Quantity; i++ {
		u := &core.Unit{
			ID:       firstID + i,
			Author:   author,
			MintedAt: ctx.Now(),
		}
		if err := ctx.State.SetUnit(u); err != nil {
			return err
		}
	}
	eng.NextUnitID += p.Quantity
	if err := ctx.State.SetEngine(eng); err != nil {
		return err
	}

	ctx.Emit(events.EventBatchMinted, map[string]any{
		"minter":        ctx.Tx.From,
		"prompt_author": author,
		"first_unit_id": firstID,
		"quantity":      p.Quantity,
		"total_paid":    p.Payment,
	})
	return nil
}
