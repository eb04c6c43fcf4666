package reveal_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NikitaPirate/glisk/core"
	"github.com/NikitaPirate/glisk/internal/testutil"
	"github.com/NikitaPirate/glisk/wallet"
)

func setup(t *testing.T) (*testutil.Harness, *wallet.Wallet) {
	t.Helper()
	h := testutil.NewHarness(t)
	owner, err := wallet.Generate()
	require.NoError(t, err)
	h.SeedEngine(t, owner.PubKey(), 1_000)
	return h, owner
}

// mintUnits allocates n unrevealed units directly in state, the way a prior
// mint batch would have left them.
func mintUnits(t *testing.T, h *testutil.Harness, author string, n int) []uint64 {
	t.Helper()
	eng, err := h.State.GetEngine()
	require.NoError(t, err)
	ids := make([]uint64, 0, n)
	for i := 0; i < n; i++ {
		id := eng.NextUnitID
		eng.NextUnitID++
		require.NoError(t, h.State.SetUnit(&core.Unit{ID: id, Author: author, MintedAt: 1}))
		ids = append(ids, id)
	}
	require.NoError(t, h.State.SetEngine(eng))
	return ids
}

func TestSetPlaceholderOwnerOnly(t *testing.T) {
	h, owner := setup(t)
	stranger, err := wallet.Generate()
	require.NoError(t, err)
	block := h.Block(1, 100)

	err = h.Run(t, block, stranger, core.TxSetPlaceholder, core.SetPlaceholderPayload{Descriptor: "ipfs://nope"})
	assert.ErrorIs(t, err, core.ErrUnauthorized)

	require.NoError(t, h.Run(t, block, owner, core.TxSetPlaceholder, core.SetPlaceholderPayload{Descriptor: "ipfs://new"}))
	eng, _ := h.State.GetEngine()
	assert.Equal(t, "ipfs://new", eng.Placeholder)
}

func TestPlaceholderResolvedAtReadTime(t *testing.T) {
	h, owner := setup(t)
	ids := mintUnits(t, h, owner.PubKey(), 1)

	eng, _ := h.State.GetEngine()
	unit, err := h.State.GetUnit(ids[0])
	require.NoError(t, err)
	assert.Equal(t, "ipfs://placeholder", eng.ResolveDescriptor(unit))

	// Changing the placeholder retroactively changes every unrevealed unit.
	require.NoError(t, h.Run(t, h.Block(1, 100), owner, core.TxSetPlaceholder, core.SetPlaceholderPayload{Descriptor: "ipfs://v2"}))
	eng, _ = h.State.GetEngine()
	unit, _ = h.State.GetUnit(ids[0])
	assert.Equal(t, "ipfs://v2", eng.ResolveDescriptor(unit))
}

func TestRevealBatch(t *testing.T) {
	h, owner := setup(t)
	ids := mintUnits(t, h, owner.PubKey(), 3)

	descriptors := []string{"ipfs://a", "ipfs://b", "ipfs://c"}
	require.NoError(t, h.Run(t, h.Block(1, 100), owner, core.TxReveal, core.RevealPayload{
		UnitIDs: ids, Descriptors: descriptors,
	}))

	eng, _ := h.State.GetEngine()
	for i, id := range ids {
		unit, err := h.State.GetUnit(id)
		require.NoError(t, err)
		assert.True(t, unit.Revealed)
		assert.Equal(t, descriptors[i], unit.Descriptor)
		assert.Equal(t, descriptors[i], eng.ResolveDescriptor(unit))
	}
}

func TestRevealIsPermanent(t *testing.T) {
	h, owner := setup(t)
	ids := mintUnits(t, h, owner.PubKey(), 1)
	block := h.Block(1, 100)

	require.NoError(t, h.Run(t, block, owner, core.TxReveal, core.RevealPayload{
		UnitIDs: ids, Descriptors: []string{"ipfs://final"},
	}))

	err := h.Run(t, block, owner, core.TxReveal, core.RevealPayload{
		UnitIDs: ids, Descriptors: []string{"ipfs://overwrite"},
	})
	assert.ErrorIs(t, err, core.ErrAlreadyRevealed)

	unit, _ := h.State.GetUnit(ids[0])
	assert.Equal(t, "ipfs://final", unit.Descriptor)
}

func TestRevealAllOrNothing(t *testing.T) {
	h, owner := setup(t)
	ids := mintUnits(t, h, owner.PubKey(), 3)
	block := h.Block(1, 100)

	require.NoError(t, h.Run(t, block, owner, core.TxReveal, core.RevealPayload{
		UnitIDs: ids[1:2], Descriptors: []string{"ipfs://middle"},
	}))

	// One already-revealed unit poisons the whole batch.
	err := h.Run(t, block, owner, core.TxReveal, core.RevealPayload{
		UnitIDs: ids, Descriptors: []string{"ipfs://x", "ipfs://y", "ipfs://z"},
	})
	assert.ErrorIs(t, err, core.ErrAlreadyRevealed)

	for _, id := range []uint64{ids[0], ids[2]} {
		unit, _ := h.State.GetUnit(id)
		assert.False(t, unit.Revealed, "unit %d must stay unrevealed", id)
	}
}

func TestRevealValidation(t *testing.T) {
	h, owner := setup(t)
	ids := mintUnits(t, h, owner.PubKey(), 2)
	block := h.Block(1, 100)

	tests := []struct {
		name    string
		payload core.RevealPayload
	}{
		{"length mismatch", core.RevealPayload{UnitIDs: ids, Descriptors: []string{"ipfs://only-one"}}},
		{"empty batch", core.RevealPayload{}},
		{"unknown unit", core.RevealPayload{UnitIDs: []uint64{99}, Descriptors: []string{"ipfs://x"}}},
		{"duplicate ids", core.RevealPayload{UnitIDs: []uint64{ids[0], ids[0]}, Descriptors: []string{"ipfs://x", "ipfs://y"}}},
		{"empty descriptor", core.RevealPayload{UnitIDs: ids[:1], Descriptors: []string{""}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, h.Run(t, block, owner, core.TxReveal, tt.payload))
		})
	}
}

func TestRevealBatchLimit(t *testing.T) {
	h, owner := setup(t)
	ids := mintUnits(t, h, owner.PubKey(), core.MaxBatch+1)

	descriptors := make([]string, len(ids))
	for i := range descriptors {
		descriptors[i] = fmt.Sprintf("ipfs://%d", i)
	}
	err := h.Run(t, h.Block(1, 100), owner, core.TxReveal, core.RevealPayload{
		UnitIDs: ids, Descriptors: descriptors,
	})
	assert.ErrorIs(t, err, core.ErrInvalidQuantity)

	require.NoError(t, h.Run(t, h.Block(1, 100), owner, core.TxReveal, core.RevealPayload{
		UnitIDs: ids[:core.MaxBatch], Descriptors: descriptors[:core.MaxBatch],
	}))
}

func TestRevealOperatorAllowed(t *testing.T) {
	h, owner := setup(t)
	op, err := wallet.Generate()
	require.NoError(t, err)
	eng, _ := h.State.GetEngine()
	eng.Operators[op.PubKey()] = true
	require.NoError(t, h.State.SetEngine(eng))
	ids := mintUnits(t, h, owner.PubKey(), 1)

	require.NoError(t, h.Run(t, h.Block(1, 100), op, core.TxReveal, core.RevealPayload{
		UnitIDs: ids, Descriptors: []string{"ipfs://by-operator"},
	}))

	stranger, _ := wallet.Generate()
	more := mintUnits(t, h, owner.PubKey(), 1)
	err = h.Run(t, h.Block(1, 100), stranger, core.TxReveal, core.RevealPayload{
		UnitIDs: more, Descriptors: []string{"ipfs://denied"},
	})
	assert.ErrorIs(t, err, core.ErrUnauthorized)
}
