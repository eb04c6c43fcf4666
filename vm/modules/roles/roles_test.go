package roles_test

import (
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

func TestGrantAndRevokeOperator(t *testing.T) {
	h, owner := setup(t)
	op, err := wallet.Generate()
	require.NoError(t, err)
	block := h.Block(1, 100)

	require.NoError(t, h.Run(t, block, owner, core.TxGrantOperator, core.GrantOperatorPayload{Account: op.PubKey()}))
	eng, _ := h.State.GetEngine()
	assert.True(t, eng.IsOperator(op.PubKey()))
	assert.True(t, eng.IsPrivileged(op.PubKey()))

	// Granting twice is an error.
	err = h.Run(t, block, owner, core.TxGrantOperator, core.GrantOperatorPayload{Account: op.PubKey()})
	require.Error(t, err)

	require.NoError(t, h.Run(t, block, owner, core.TxRevokeOperator, core.RevokeOperatorPayload{Account: op.PubKey()}))
	eng, _ = h.State.GetEngine()
	assert.False(t, eng.IsOperator(op.PubKey()))

	// Revoking a non-operator is an error.
	err = h.Run(t, block, owner, core.TxRevokeOperator, core.RevokeOperatorPayload{Account: op.PubKey()})
	require.Error(t, err)
}

func TestOperatorCannotManageRoles(t *testing.T) {
	h, owner := setup(t)
	op, _ := wallet.Generate()
	other, _ := wallet.Generate()
	block := h.Block(1, 100)

	require.NoError(t, h.Run(t, block, owner, core.TxGrantOperator, core.GrantOperatorPayload{Account: op.PubKey()}))

	err := h.Run(t, block, op, core.TxGrantOperator, core.GrantOperatorPayload{Account: other.PubKey()})
	assert.ErrorIs(t, err, core.ErrUnauthorized)

	err = h.Run(t, block, op, core.TxTransferOwnership, core.TransferOwnershipPayload{NewOwner: op.PubKey()})
	assert.ErrorIs(t, err, core.ErrUnauthorized)
}

func TestTransferOwnership(t *testing.T) {
	h, owner := setup(t)
	next, err := wallet.Generate()
	require.NoError(t, err)
	block := h.Block(1, 100)

	require.NoError(t, h.Run(t, block, owner, core.TxTransferOwnership, core.TransferOwnershipPayload{NewOwner: next.PubKey()}))

	eng, _ := h.State.GetEngine()
	assert.Equal(t, next.PubKey(), eng.Owner)
	assert.False(t, eng.IsOwner(owner.PubKey()))

	// The old owner's authority is gone immediately.
	err = h.Run(t, block, owner, core.TxTransferOwnership, core.TransferOwnershipPayload{NewOwner: owner.PubKey()})
	assert.ErrorIs(t, err, core.ErrUnauthorized)

	// The new owner holds full authority.
	require.NoError(t, h.Run(t, block, next, core.TxTransferOwnership, core.TransferOwnershipPayload{NewOwner: owner.PubKey()}))
}

func TestTransferOwnershipValidation(t *testing.T) {
	h, owner := setup(t)
	block := h.Block(1, 100)

	require.Error(t, h.Run(t, block, owner, core.TxTransferOwnership, core.TransferOwnershipPayload{}))
	require.Error(t, h.Run(t, block, owner, core.TxTransferOwnership, core.TransferOwnershipPayload{NewOwner: "zz"}))
}
