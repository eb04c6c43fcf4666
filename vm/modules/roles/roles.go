// Package roles implements the two-tier authority registry: one Owner with
// full authority and any number of Operators with a limited grant. Every
// other module consults the registry through EngineState's role predicates;
// this module is the only writer.
package roles

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/NikitaPirate/glisk/core"
	"github.com/NikitaPirate/glisk/crypto"
	"github.com/NikitaPirate/glisk/events"
	"github.com/NikitaPirate/glisk/vm"
)

func init() {
	vm.Register(core.TxGrantOperator, handleGrantOperator)
	vm.Register(core.TxRevokeOperator, handleRevokeOperator)
	vm.Register(core.TxTransferOwnership, handleTransferOwnership)
}

func ownerEngine(ctx *vm.Context, op string) (*core.EngineState, error) {
	eng, err := ctx.State.GetEngine()
	if err != nil {
		return nil, fmt.Errorf("engine state: %w", err)
	}
	if !eng.IsOwner(ctx.Tx.From) {
		return nil, fmt.Errorf("%w: %s is owner-only", core.ErrUnauthorized, op)
	}
	return eng, nil
}

func handleGrantOperator(ctx *vm.Context, payload json.RawMessage) error {
	var p core.GrantOperatorPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode grant_operator payload: %w", err)
	}
	eng, err := ownerEngine(ctx, "grant_operator")
	if err != nil {
		return err
	}
	if _, err := crypto.PubKeyFromHex(p.Account); err != nil {
		return fmt.Errorf("invalid operator pubkey: %w", err)
	}
	if eng.Operators[p.Account] {
		return fmt.Errorf("account %s is already an operator", p.Account)
	}

	eng.Operators[p.Account] = true
	if err := ctx.State.SetEngine(eng); err != nil {
		return err
	}

	ctx.Emit(events.EventOperatorGranted, map[string]any{"account": p.Account})
	return nil
}

func handleRevokeOperator(ctx *vm.Context, payload json.RawMessage) error {
	var p core.RevokeOperatorPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode revoke_operator payload: %w", err)
	}
	eng, err := ownerEngine(ctx, "revoke_operator")
	if err != nil {
		return err
	}
	if !eng.Operators[p.Account] {
		return fmt.Errorf("account %s is not an operator", p.Account)
	}

	delete(eng.Operators, p.Account)
	if err := ctx.State.SetEngine(eng); err != nil {
		return err
	}

	ctx.Emit(events.EventOperatorRevoked, map[string]any{"account": p.Account})
	return nil
}

func handleTransferOwnership(ctx *vm.Context, payload json.RawMessage) error {
	var p core.TransferOwnershipPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode transfer_ownership payload: %w", err)
	}
	eng, err := ownerEngine(ctx, "transfer_ownership")
	if err != nil {
		return err
	}
	if p.NewOwner == "" {
		return errors.New("new_owner required")
	}
	if _, err := crypto.PubKeyFromHex(p.NewOwner); err != nil {
		return fmt.Errorf("invalid new_owner pubkey: %w", err)
	}

	old := eng.Owner
	eng.Owner = p.NewOwner
	if err := ctx.State.SetEngine(eng); err != nil {
		return err
	}

	ctx.Emit(events.EventOwnershipMoved, map[string]any{"from": old, "to": p.NewOwner})
	return nil
}
