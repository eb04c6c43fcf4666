// Package reveal implements the one-way per-unit descriptor state machine.
// Units start on the global placeholder; a reveal permanently assigns their
// descriptor. Reveals are batched all-or-nothing: the batch is validated in
// full before any unit is touched.
package reveal

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/NikitaPirate/glisk/core"
	"github.com/NikitaPirate/glisk/events"
	"github.com/NikitaPirate/glisk/vm"
)

func init() {
	vm.Register(core.TxSetPlaceholder, handleSetPlaceholder)
	vm.Register(core.TxReveal, handleReveal)
}

func handleSetPlaceholder(ctx *vm.Context, payload json.RawMessage) error {
	var p core.SetPlaceholderPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode set_placeholder payload: %w", err)
	}

	eng, err := ctx.State.GetEngine()
	if err != nil {
		return fmt.Errorf("engine state: %w", err)
	}
	if !eng.IsOwner(ctx.Tx.From) {
		return fmt.Errorf("%w: set_placeholder is owner-only", core.ErrUnauthorized)
	}

	// Descriptors resolve at read time, so this takes effect immediately for
	// every not-yet-revealed unit.
	eng.Placeholder = p.Descriptor
	if err := ctx.State.SetEngine(eng); err != nil {
		return err
	}

	ctx.Emit(events.EventPlaceholderUpdated, map[string]any{"descriptor": p.Descriptor})
	return nil
}

func handleReveal(ctx *vm.Context, payload json.RawMessage) error {
	var p core.RevealPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode reveal payload: %w", err)
	}

	eng, err := ctx.State.GetEngine()
	if err != nil {
		return fmt.Errorf("engine state: %w", err)
	}
	if !eng.IsPrivileged(ctx.Tx.From) {
		return fmt.Errorf("%w: reveal requires owner or operator", core.ErrUnauthorized)
	}
	if len(p.UnitIDs) == 0 {
		return errors.New("unit_ids required")
	}
	if len(p.UnitIDs) != len(p.Descriptors) {
		return fmt.Errorf("unit_ids/descriptors length mismatch: %d vs %d",
			len(p.UnitIDs), len(p.Descriptors))
	}
	if len(p.UnitIDs) > core.MaxBatch {
		return fmt.Errorf("%w: %d units (max %d)", core.ErrInvalidQuantity, len(p.UnitIDs), core.MaxBatch)
	}

	// Pass 1: validate every unit. Nothing is written until all checks pass,
	// so a half-revealed batch is unrepresentable even transiently.
	units := make([]*core.Unit, len(p.UnitIDs))
	seen := make(map[uint64]bool, len(p.UnitIDs))
	for i, id := range p.UnitIDs {
		if seen[id] {
			return fmt.Errorf("duplicate unit id %d in batch", id)
		}
		seen[id] = true

		if p.Descriptors[i] == "" {
			return fmt.Errorf("empty descriptor for unit %d", id)
		}
		u, err := ctx.State.GetUnit(id)
		if err != nil {
			return fmt.Errorf("unit %d: %w", id, err)
		}
		if u.Revealed {
			return fmt.Errorf("%w: unit %d", core.ErrAlreadyRevealed, id)
		}
		units[i] = u
	}

	// Pass 2: apply.
	for i, u := range units {
		u.Revealed = true
		u.Descriptor = p.Descriptors[i]
		if err := ctx.State.SetUnit(u); err != nil {
			return err
		}
	}

	ctx.Emit(events.EventRevealed, map[string]any{"unit_ids": p.UnitIDs})
	return nil
}
