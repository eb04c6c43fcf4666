package vm_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NikitaPirate/glisk/core"
	"github.com/NikitaPirate/glisk/internal/testutil"
	"github.com/NikitaPirate/glisk/wallet"

	_ "github.com/NikitaPirate/glisk/vm/modules/bank"
	_ "github.com/NikitaPirate/glisk/vm/modules/minting"
	_ "github.com/NikitaPirate/glisk/vm/modules/reveal"
	_ "github.com/NikitaPirate/glisk/vm/modules/rewards"
	_ "github.com/NikitaPirate/glisk/vm/modules/roles"
	_ "github.com/NikitaPirate/glisk/vm/modules/royalty"
	_ "github.com/NikitaPirate/glisk/vm/modules/season"
)

// TestSeasonLifecycle drives one full season through the real executor path:
// mint, reveal, claim, end, sweep, withdraw.
func TestSeasonLifecycle(t *testing.T) {
	h := testutil.NewHarness(t)
	owner, err := wallet.Generate()
	require.NoError(t, err)
	author, err := wallet.Generate()
	require.NoError(t, err)
	minter, err := wallet.Generate()
	require.NoError(t, err)

	h.SeedEngine(t, owner.PubKey(), 1_000)
	h.Fund(t, minter.PubKey(), 100_000)

	// Mint 4 units crediting the author, pay exactly.
	require.NoError(t, h.Run(t, h.Block(1, 1_000), minter, core.TxMintBatch, core.MintBatchPayload{
		PromptAuthor: author.PubKey(), Quantity: 4, Payment: 4_000,
	}))
	eng, _ := h.State.GetEngine()
	assert.Equal(t, uint64(2_000), eng.PoolBalance)
	assert.Equal(t, uint64(2_000), h.SumClaimable(t))

	// Reveal two of them.
	require.NoError(t, h.Run(t, h.Block(2, 2_000), owner, core.TxReveal, core.RevealPayload{
		UnitIDs: []uint64{1, 2}, Descriptors: []string{"ipfs://one", "ipfs://two"},
	}))
	unit, err := h.State.GetUnit(3)
	require.NoError(t, err)
	eng, _ = h.State.GetEngine()
	assert.Equal(t, eng.Placeholder, eng.ResolveDescriptor(unit))

	// Author claims the full credited share.
	require.NoError(t, h.Run(t, h.Block(3, 3_000), author, core.TxClaim, core.ClaimPayload{}))
	acc, _ := h.State.GetAccount(author.PubKey())
	assert.Equal(t, uint64(2_000), acc.Balance)
	assert.Equal(t, uint64(0), h.SumClaimable(t))

	// End the season; minting stops, the pool remains withdrawable.
	require.NoError(t, h.Run(t, h.Block(4, 10_000), owner, core.TxEndSeason, core.EndSeasonPayload{}))
	err = h.Run(t, h.Block(5, 11_000), minter, core.TxMintBatch, core.MintBatchPayload{
		Quantity: 1, Payment: 1_000,
	})
	assert.ErrorIs(t, err, core.ErrMintingClosed)

	// A straggler credit left unclaimed gets swept after the grace period.
	straggler, _ := wallet.Generate()
	require.NoError(t, h.State.SetClaimable(straggler.PubKey(), 300))
	eng, _ = h.State.GetEngine()
	eng.PoolBalance -= 300 // keep custody totals honest: move 300 pool -> claimable
	require.NoError(t, h.State.SetEngine(eng))

	sweepAt := int64(10_000) + core.GracePeriod
	require.NoError(t, h.Run(t, h.Block(6, sweepAt), owner, core.TxSweep, core.SweepPayload{
		Accounts: []string{straggler.PubKey()},
	}))
	eng, _ = h.State.GetEngine()
	assert.Equal(t, uint64(2_000), eng.PoolBalance)
	assert.Equal(t, uint64(0), h.SumClaimable(t))

	// Owner drains the pool.
	require.NoError(t, h.Run(t, h.Block(7, sweepAt+1), owner, core.TxWithdrawPool, core.WithdrawPoolPayload{
		Recipient: owner.PubKey(), Amount: 2_000,
	}))
	eng, _ = h.State.GetEngine()
	assert.Equal(t, uint64(0), eng.PoolBalance)
	acc, _ = h.State.GetAccount(owner.PubKey())
	assert.Equal(t, uint64(2_000), acc.Balance)
}

// TestFundConservation runs a randomized mix of mints, claims and withdrawals
// and checks after every transaction that the engine's internal ledgers sum
// to exactly what has been paid in minus what has been paid out.
func TestFundConservation(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	h := testutil.NewHarness(t)
	owner, err := wallet.Generate()
	require.NoError(t, err)
	h.SeedEngine(t, owner.PubKey(), 100)

	authors := make([]*wallet.Wallet, 3)
	for i := range authors {
		authors[i], err = wallet.Generate()
		require.NoError(t, err)
	}
	minter, err := wallet.Generate()
	require.NoError(t, err)
	h.Fund(t, minter.PubKey(), 10_000_000)

	// custodied tracks funds inside the engine from the outside: everything a
	// successful mint paid in, minus every successful claim and withdrawal.
	var custodied uint64
	check := func() {
		t.Helper()
		eng, err := h.State.GetEngine()
		require.NoError(t, err)
		require.Equal(t, custodied, eng.PoolBalance+h.SumClaimable(t),
			"pool + claimable must equal net funds paid in")
	}

	for i := 0; i < 400; i++ {
		block := h.Block(int64(i+1), int64(i+1)*1_000)
		author := authors[rng.Intn(len(authors))]

		switch rng.Intn(4) {
		case 0, 1: // mint, sometimes overpaying
			qty := uint64(rng.Intn(5) + 1)
			payment := qty*100 + uint64(rng.Intn(3))
			err := h.Run(t, block, minter, core.TxMintBatch, core.MintBatchPayload{
				PromptAuthor: author.PubKey(), Quantity: qty, Payment: payment,
			})
			require.NoError(t, err)
			custodied += payment
		case 2: // claim whatever the author has accrued
			amount, err := h.State.Claimable(author.PubKey())
			require.NoError(t, err)
			require.NoError(t, h.Run(t, block, author, core.TxClaim, core.ClaimPayload{}))
			custodied -= amount
		case 3: // owner withdraws part of the pool
			eng, err := h.State.GetEngine()
			require.NoError(t, err)
			if eng.PoolBalance == 0 {
				continue
			}
			amount := uint64(rng.Int63n(int64(eng.PoolBalance))) + 1
			require.NoError(t, h.Run(t, block, owner, core.TxWithdrawPool, core.WithdrawPoolPayload{
				Recipient: owner.PubKey(), Amount: amount,
			}))
			custodied -= amount
		}
		check()
	}

	// Unit ids are a gapless sequence: every id below the cursor exists
	// exactly once and carries the crediting author.
	eng, err := h.State.GetEngine()
	require.NoError(t, err)
	for id := uint64(1); id < eng.NextUnitID; id++ {
		unit, err := h.State.GetUnit(id)
		require.NoError(t, err, "unit %d must exist", id)
		require.Equal(t, id, unit.ID)
	}
	_, err = h.State.GetUnit(eng.NextUnitID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

// TestFailedTxLeavesNoTrace checks the snapshot rollback: a handler failure
// must undo every write, including the fee/nonce bookkeeping.
func TestFailedTxLeavesNoTrace(t *testing.T) {
	h := testutil.NewHarness(t)
	owner, err := wallet.Generate()
	require.NoError(t, err)
	h.SeedEngine(t, owner.PubKey(), 1_000)
	minter, err := wallet.Generate()
	require.NoError(t, err)
	h.Fund(t, minter.PubKey(), 5_000)

	before := h.State.ComputeRoot()
	err = h.Run(t, h.Block(1, 100), minter, core.TxMintBatch, core.MintBatchPayload{
		Quantity: 3, Payment: 2_999, // one short
	})
	assert.ErrorIs(t, err, core.ErrInsufficientPayment)
	assert.Equal(t, before, h.State.ComputeRoot())
}

func TestUnknownTxTypeRejected(t *testing.T) {
	h := testutil.NewHarness(t)
	owner, err := wallet.Generate()
	require.NoError(t, err)
	h.SeedEngine(t, owner.PubKey(), 1_000)

	err = h.Run(t, h.Block(1, 100), owner, core.TxType("no_such_op"), struct{}{})
	require.Error(t, err)
}
