package wallet

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReserveDebitsAvailableBalance(t *testing.T) {
	w := NewInMemory(map[string]int64{"alice": 1000})
	require.NoError(t, w.Reserve("alice", 500))
	require.Equal(t, int64(500), w.Balance("alice"))
}

func TestReserveInsufficientFunds(t *testing.T) {
	w := NewInMemory(map[string]int64{"alice": 100})
	err := w.Reserve("alice", 500)
	require.ErrorIs(t, err, ErrInsufficientFunds)
	require.Equal(t, int64(100), w.Balance("alice"))
}

func TestReleaseReturnsReservedFunds(t *testing.T) {
	w := NewInMemory(map[string]int64{"alice": 1000})
	require.NoError(t, w.Reserve("alice", 500))
	require.NoError(t, w.Release("alice", 500))
	require.Equal(t, int64(1000), w.Balance("alice"))
}

func TestCommitWinCreditsBalance(t *testing.T) {
	w := NewInMemory(map[string]int64{"alice": 1000})
	require.NoError(t, w.Reserve("alice", 500))
	require.NoError(t, w.CommitWin("alice", 800))
	require.Equal(t, int64(1300), w.Balance("alice"))
}
