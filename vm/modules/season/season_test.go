package season_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NikitaPirate/glisk/core"
	"github.com/NikitaPirate/glisk/internal/testutil"
	"github.com/NikitaPirate/glisk/wallet"

	_ "github.com/NikitaPirate/glisk/vm/modules/minting"
	_ "github.com/NikitaPirate/glisk/vm/modules/rewards"
)

func TestEndSeasonOwnerOnly(t *testing.T) {
	h := testutil.NewHarness(t)
	owner, err := wallet.Generate()
	require.NoError(t, err)
	h.SeedEngine(t, owner.PubKey(), 1_000)

	op, _ := wallet.Generate()
	eng, _ := h.State.GetEngine()
	eng.Operators[op.PubKey()] = true
	require.NoError(t, h.State.SetEngine(eng))

	err = h.Run(t, h.Block(1, 500), op, core.TxEndSeason, core.EndSeasonPayload{})
	assert.ErrorIs(t, err, core.ErrUnauthorized)

	require.NoError(t, h.Run(t, h.Block(1, 500), owner, core.TxEndSeason, core.EndSeasonPayload{}))

	eng, _ = h.State.GetEngine()
	assert.True(t, eng.SeasonEnded)
	assert.Equal(t, int64(500), eng.SeasonEndedAt)
}

func TestEndSeasonIsOneWay(t *testing.T) {
	h := testutil.NewHarness(t)
	owner, err := wallet.Generate()
	require.NoError(t, err)
	h.SeedEngine(t, owner.PubKey(), 1_000)

	require.NoError(t, h.Run(t, h.Block(1, 500), owner, core.TxEndSeason, core.EndSeasonPayload{}))

	// A second end is rejected and the original timestamp survives.
	err = h.Run(t, h.Block(2, 900), owner, core.TxEndSeason, core.EndSeasonPayload{})
	assert.ErrorIs(t, err, core.ErrAlreadyEnded)

	eng, _ := h.State.GetEngine()
	assert.Equal(t, int64(500), eng.SeasonEndedAt)
}

func TestEndSeasonStopsMintingNotClaims(t *testing.T) {
	h := testutil.NewHarness(t)
	owner, err := wallet.Generate()
	require.NoError(t, err)
	h.SeedEngine(t, owner.PubKey(), 1_000)

	author, _ := wallet.Generate()
	require.NoError(t, h.State.SetClaimable(author.PubKey(), 400))

	require.NoError(t, h.Run(t, h.Block(1, 500), owner, core.TxEndSeason, core.EndSeasonPayload{}))

	minter, _ := wallet.Generate()
	h.Fund(t, minter.PubKey(), 10_000)
	err = h.Run(t, h.Block(2, 600), minter, core.TxMintBatch, core.MintBatchPayload{
		Quantity: 1, Payment: 1_000,
	})
	assert.ErrorIs(t, err, core.ErrMintingClosed)

	require.NoError(t, h.Run(t, h.Block(2, 600), author, core.TxClaim, core.ClaimPayload{}))
	acc, _ := h.State.GetAccount(author.PubKey())
	assert.Equal(t, uint64(400), acc.Balance)
}
