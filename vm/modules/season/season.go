// Package season implements the one-way season gate. Ending the season stops
// minting immediately and starts the grace window after which unclaimed
// balances become sweepable. There is no way back to the active state.
package season

import (
	"encoding/json"
	"fmt"

	"github.com/NikitaPirate/glisk/core"
	"github.com/NikitaPirate/glisk/events"
	"github.com/NikitaPirate/glisk/vm"
)

func init() {
	vm.Register(core.TxEndSeason, handleEndSeason)
}

func handleEndSeason(ctx *vm.Context, payload json.RawMessage) error {
	var p core.EndSeasonPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode end_season payload: %w", err)
	}

	eng, err := ctx.State.GetEngine()
	if err != nil {
		return fmt.Errorf("engine state: %w", err)
	}
	if !eng.IsOwner(ctx.Tx.From) {
		return fmt.Errorf("%w: end_season is owner-only", core.ErrUnauthorized)
	}
	if eng.SeasonEnded {
		return core.ErrAlreadyEnded
	}

	eng.SeasonEnded = true
	eng.SeasonEndedAt = ctx.Now()
	if err := ctx.State.SetEngine(eng); err != nil {
		return err
	}

	ctx.Emit(events.EventSeasonEnded, map[string]any{"timestamp": eng.SeasonEndedAt})
	return nil
}
