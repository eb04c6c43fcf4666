// Package royalty maintains the single global (receiver, rate) tuple that
// external marketplaces read. One tuple for all units is a deliberate
// limitation of the single-receiver royalty model.
package royalty

import (
	"encoding/json"
	"fmt"

	"github.com/NikitaPirate/glisk/core"
	"github.com/NikitaPirate/glisk/crypto"
	"github.com/NikitaPirate/glisk/events"
	"github.com/NikitaPirate/glisk/vm"
)

// maxRateBps caps the royalty rate at 100%.
const maxRateBps = 10_000

func init() {
	vm.Register(core.TxSetRoyalty, handleSetRoyalty)
}

func handleSetRoyalty(ctx *vm.Context, payload json.RawMessage) error {
	var p core.SetRoyaltyPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode set_royalty payload: %w", err)
	}

	eng, err := ctx.State.GetEngine()
	if err != nil {
		return fmt.Errorf("engine state: %w", err)
	}
	if !eng.IsOwner(ctx.Tx.From) {
		return fmt.Errorf("%w: set_royalty is owner-only", core.ErrUnauthorized)
	}
	if _, err := crypto.PubKeyFromHex(p.Receiver); err != nil {
		return fmt.Errorf("invalid receiver pubkey: %w", err)
	}
	if p.RateBps > maxRateBps {
		return fmt.Errorf("royalty rate %d exceeds %d bps", p.RateBps, maxRateBps)
	}

	eng.RoyaltyReceiver = p.Receiver
	eng.RoyaltyRateBps = p.RateBps
	if err := ctx.State.SetEngine(eng); err != nil {
		return err
	}

	ctx.Emit(events.EventRoyaltyUpdated, map[string]any{
		"receiver": p.Receiver,
		"rate_bps": p.RateBps,
	})
	return nil
}
