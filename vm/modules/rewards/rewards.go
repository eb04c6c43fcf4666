// Package rewards implements the pull-based withdrawal ledger: authors claim
// their credited share, the Owner pays out of the shared pool, and after the
// post-season grace period the Owner may sweep unclaimed balances into the
// pool. Every fund-moving handler zeroes internal state strictly before the
// outbound transfer and runs under a shared non-reentrancy guard.
package rewards

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
	vm.Register(core.TxClaim, handleClaim)
	vm.Register(core.TxWithdrawPool, handleWithdrawPool)
	vm.Register(core.TxSweep, handleSweep)
}

// transferring is the call-depth guard shared by all fund-moving handlers.
// The executor is single-threaded, so a plain bool is the exact analogue of
// a contract-global reentrancy flag.
var transferring bool

// payOut credits amount to the recipient's custodied balance. It is the only
// place engine funds leave the claimable/pool ledger, and it must run after
// the internal balance has already been zeroed or debited.
func payOut(ctx *vm.Context, recipient string, amount uint64) error {
	if transferring {
		return core.ErrReentrantCall
	}
	transferring = true
	defer func() { transferring = false }()

	acc, err := ctx.State.GetAccount(recipient)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrTransferFailed, err)
	}
	if amount > math.MaxUint64-acc.Balance {
		return fmt.Errorf("%w: recipient balance overflow", core.ErrTransferFailed)
	}
	acc.Balance += amount
	if err := ctx.State.SetAccount(acc); err != nil {
		return fmt.Errorf("%w: %v", core.ErrTransferFailed, err)
	}

	ctx.Emit(events.EventFundTransfer, map[string]any{
		"to":     recipient,
		"amount": amount,
	})
	return nil
}

func handleClaim(ctx *vm.Context, payload json.RawMessage) error {
	var p core.ClaimPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode claim payload: %w", err)
	}

	caller := ctx.Tx.From
	amount, err := ctx.State.Claimable(caller)
	if err != nil {
		return err
	}
	// A zero-balance claim succeeds and transfers nothing, so automation can
	// claim blindly without a pre-check.
	if amount == 0 {
		ctx.Emit(events.EventClaimed, map[string]any{"account": caller, "amount": uint64(0)})
		return nil
	}

	// Zero the stored balance before the transfer. If the transfer fails the
	// executor's snapshot revert restores it.
	if err := ctx.State.SetClaimable(caller, 0); err != nil {
		return err
	}
	if err := payOut(ctx, caller, amount); err != nil {
		return err
	}

	ctx.Emit(events.EventClaimed, map[string]any{"account": caller, "amount": amount})
	return nil
}

func handleWithdrawPool(ctx *vm.Context, payload json.RawMessage) error {
	var p core.WithdrawPoolPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode withdraw_pool payload: %w", err)
	}

	eng, err := ctx.State.GetEngine()
	if err != nil {
		return fmt.Errorf("engine state: %w", err)
	}
	if !eng.IsOwner(ctx.Tx.From) {
		return fmt.Errorf("%w: withdraw_pool is owner-only", core.ErrUnauthorized)
	}
	if p.Recipient == "" {
		p.Recipient = ctx.Tx.From
	} else if _, err := crypto.PubKeyFromHex(p.Recipient); err != nil {
		return fmt.Errorf("invalid recipient pubkey: %w", err)
	}
	if p.Amount == 0 {
		return fmt.Errorf("withdraw amount must be > 0")
	}
	if eng.PoolBalance < p.Amount {
		return fmt.Errorf("insufficient pool balance: have %d need %d", eng.PoolBalance, p.Amount)
	}

	// Debit the pool before the transfer, same ordering as claim.
	eng.PoolBalance -= p.Amount
	if err := ctx.State.SetEngine(eng); err != nil {
		return err
	}
	if err := payOut(ctx, p.Recipient, p.Amount); err != nil {
		return err
	}

	ctx.Emit(events.EventPoolWithdrawn, map[string]any{
		"recipient": p.Recipient,
		"amount":    p.Amount,
	})
	return nil
}

func handleSweep(ctx *vm.Context, payload json.RawMessage) error {
	var p core.SweepPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode sweep payload: %w", err)
	}

	eng, err := ctx.State.GetEngine()
	if err != nil {
		return fmt.Errorf("engine state: %w", err)
	}
	if !eng.IsOwner(ctx.Tx.From) {
		return fmt.Errorf("%w: sweep is owner-only", core.ErrUnauthorized)
	}
	if !eng.SeasonEnded {
		return core.ErrSeasonNotEnded
	}
	if ctx.Now() < eng.SeasonEndedAt+core.GracePeriod {
		return fmt.Errorf("%w until %d", core.ErrGracePeriodActive, eng.SeasonEndedAt+core.GracePeriod)
	}
	if len(p.Accounts) > core.MaxBatch {
		return fmt.Errorf("%w: %d accounts (max %d)", core.ErrInvalidQuantity, len(p.Accounts), core.MaxBatch)
	}

	// No external transfer happens here: funds move between two internal
	// ledgers, so the pool credit and the zeroing are one atomic step.
	var total uint64
	for _, addr := range p.Accounts {
		amount, err := ctx.State.Claimable(addr)
		if err != nil {
			return err
		}
		if amount == 0 {
			continue
		}
		if amount > math.MaxUint64-eng.PoolBalance {
			return fmt.Errorf("pool balance overflow")
		}
		if err := ctx.State.SetClaimable(addr, 0); err != nil {
			return err
		}
		eng.PoolBalance += amount
		total += amount
	}
	if err := ctx.State.SetEngine(eng); err != nil {
		return err
	}

	ctx.Emit(events.EventSwept, map[string]any{
		"total_amount":  total,
		"account_count": len(p.Accounts),
	})
	return nil
}
