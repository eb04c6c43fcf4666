package indexer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NikitaPirate/glisk/core"
	"github.com/NikitaPirate/glisk/events"
	"github.com/NikitaPirate/glisk/indexer"
	"github.com/NikitaPirate/glisk/internal/testutil"
	"github.com/NikitaPirate/glisk/wallet"

	_ "github.com/NikitaPirate/glisk/vm/modules/minting"
	_ "github.com/NikitaPirate/glisk/vm/modules/reveal"
)

func TestIndexesMintedBatch(t *testing.T) {
	db := testutil.NewMemDB()
	emitter := events.NewEmitter()
	idx := indexer.New(db, emitter)

	emitter.Emit(events.Event{
		Type: events.EventBatchMinted,
		Data: map[string]any{
			"prompt_author": "alice",
			"first_unit_id": uint64(1),
			"quantity":      uint64(3),
		},
	})
	emitter.Emit(events.Event{
		Type: events.EventBatchMinted,
		Data: map[string]any{
			"prompt_author": "bob",
			"first_unit_id": uint64(4),
			"quantity":      uint64(1),
		},
	})

	ids, err := idx.UnitsByAuthor("alice")
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2, 3}, ids)

	ids, err = idx.UnitsByAuthor("bob")
	require.NoError(t, err)
	assert.Equal(t, []uint64{4}, ids)

	ids, err = idx.UnitsByAuthor("nobody")
	require.NoError(t, err)
	assert.Empty(t, ids)

	unrevealed, err := idx.UnrevealedUnits()
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2, 3, 4}, unrevealed)
}

func TestRevealRemovesFromUnrevealedIndex(t *testing.T) {
	db := testutil.NewMemDB()
	emitter := events.NewEmitter()
	idx := indexer.New(db, emitter)

	emitter.Emit(events.Event{
		Type: events.EventBatchMinted,
		Data: map[string]any{
			"prompt_author": "alice",
			"first_unit_id": uint64(1),
			"quantity":      uint64(3),
		},
	})
	emitter.Emit(events.Event{
		Type: events.EventRevealed,
		Data: map[string]any{"unit_ids": []uint64{1, 3}},
	})

	unrevealed, err := idx.UnrevealedUnits()
	require.NoError(t, err)
	assert.Equal(t, []uint64{2}, unrevealed)

	// Author index is permanent: reveals do not touch it.
	ids, err := idx.UnitsByAuthor("alice")
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2, 3}, ids)
}

// TestIndexerFollowsExecutor runs the real mint and reveal handlers and
// checks the indexer tracks them through the emitter.
func TestIndexerFollowsExecutor(t *testing.T) {
	h := testutil.NewHarness(t)
	db := testutil.NewMemDB()
	idx := indexer.New(db, h.Emitter)

	owner, err := wallet.Generate()
	require.NoError(t, err)
	author, err := wallet.Generate()
	require.NoError(t, err)
	h.SeedEngine(t, owner.PubKey(), 100)
	h.Fund(t, owner.PubKey(), 10_000)

	require.NoError(t, h.Run(t, h.Block(1, 100), owner, core.TxMintBatch, core.MintBatchPayload{
		PromptAuthor: author.PubKey(), Quantity: 2, Payment: 200,
	}))
	require.NoError(t, h.Run(t, h.Block(2, 200), owner, core.TxReveal, core.RevealPayload{
		UnitIDs: []uint64{1}, Descriptors: []string{"ipfs://one"},
	}))

	ids, err := idx.UnitsByAuthor(author.PubKey())
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, ids)

	unrevealed, err := idx.UnrevealedUnits()
	require.NoError(t, err)
	assert.Equal(t, []uint64{2}, unrevealed)
}
