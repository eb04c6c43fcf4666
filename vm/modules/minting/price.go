package minting

import (
	"encoding/json"
	"fmt"

	"github.com/NikitaPirate/glisk/core"
	"github.com/NikitaPirate/glisk/events"
	"github.com/NikitaPirate/glisk/vm"
)

func init() {
	vm.Register(core.TxSetPrice, handleSetPrice)
}

// handleSetPrice updates the per-unit mint price. Operators may do this so
// the off-chain side can reprice without holding the owner key.
func handleSetPrice(ctx *vm.Context, payload json.RawMessage) error {
	var p core.SetPricePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode set_price payload: %w", err)
	}

	eng, err := ctx.State.GetEngine()
	if err != nil {
		return fmt.Errorf("engine state: %w", err)
	}
	if !eng.IsPrivileged(ctx.Tx.From) {
		return fmt.Errorf("%w: set_price requires owner or operator", core.ErrUnauthorized)
	}

	old := eng.UnitPrice
	eng.UnitPrice = p.Price
	if err := ctx.State.SetEngine(eng); err != nil {
		return err
	}

	ctx.Emit(events.EventPriceUpdated, map[string]any{"old": old, "new": p.Price})
	return nil
}
