package service

import (
	"testing"

	"escrow-client-sol/internal/logic/codec"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscrowWatcherReportsChanges(t *testing.T) {
	fx := newFixture(t)
	addr := fx.putEscrow(t, "tx_w", codec.EscrowActive)

	var changes []StatusChange
	w, err := NewEscrowWatcher(fx.service, 0, []string{"tx_w"}, func(c StatusChange) {
		changes = append(changes, c)
	})
	require.NoError(t, err)
	defer w.Stop()

	require.Len(t, changes, 1)
	st, ok := w.Status("tx_w")
	require.True(t, ok)
	assert.Equal(t, codec.EscrowActive, st)

	// 状态不变时不回调
	require.NoError(t, w.update())
	assert.Len(t, changes, 1)

	fx.putEscrow(t, "tx_w", codec.EscrowDisputed)
	require.NoError(t, w.update())
	require.Len(t, changes, 2)
	assert.Equal(t, codec.EscrowActive, changes[1].Previous)
	assert.Equal(t, codec.EscrowDisputed, changes[1].Account.EscrowStatus())

	// 账户关闭
	delete(fx.ledger.accounts, addr)
	require.NoError(t, w.update())
	require.Len(t, changes, 3)
	assert.Nil(t, changes[2].Account)
	_, ok = w.Status("tx_w")
	assert.False(t, ok)
}

func TestNewEscrowWatcherRequiresTargets(t *testing.T) {
	fx := newFixture(t)
	_, err := NewEscrowWatcher(fx.service, 0, nil, nil)
	assert.Error(t, err)
}
