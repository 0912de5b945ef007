package rng

import (
	"sync"
	"testing"

	"github.com/decred/slog"
	"github.com/stretchr/testify/require"

	"github.com/vctt94/pokercore/internal/cards"
)

type fakeSink struct {
	mu      sync.Mutex
	batches [][]AuditRecord
	alerts  []SecurityAlert
}

func (f *fakeSink) AppendBatch(tableID string, records []AuditRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, records)
	return nil
}

func (f *fakeSink) AppendAlert(alert SecurityAlert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, alert)
	return nil
}

func TestRandomIntUniformityNoModuloBias(t *testing.T) {
	const trials = 200000
	counts := make(map[int]int)
	for i := 0; i < trials; i++ {
		n, err := RandomInt(0, 5)
		require.NoError(t, err)
		require.GreaterOrEqual(t, n, 0)
		require.LessOrEqual(t, n, 5)
		counts[n]++
	}
	require.Len(t, counts, 6)
	expected := float64(trials) / 6
	for _, count := range counts {
		ratio := float64(count) / expected
		require.InDelta(t, 1.0, ratio, 0.05)
	}
}

func TestShuffleIsPermutation(t *testing.T) {
	core := New(Config{}, &fakeSink{}, slog.Disabled)
	deck := cards.NewDeck52()
	shuffled, proof, err := core.Shuffle("table-1", deck)
	require.NoError(t, err)
	require.Len(t, shuffled, 52)
	require.Equal(t, ShuffleAlgorithm, proof.Algorithm)

	seen := make(map[cards.Card]bool)
	for _, c := range shuffled {
		require.False(t, seen[c], "duplicate card in shuffled deck")
		seen[c] = true
	}
	require.Len(t, seen, 52)
}

func TestCommitRevealRoundTrip(t *testing.T) {
	core := New(Config{}, &fakeSink{}, slog.Disabled)
	deck := cards.NewDeck52()
	shuffled, _, err := core.Shuffle("table-1", deck)
	require.NoError(t, err)

	commitment, err := core.Commit("table-1", "hand-1", shuffled)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(commitment.Nonce), 32)

	require.NoError(t, VerifyReveal(shuffled, commitment))
}

func TestRevealDetectsTampering(t *testing.T) {
	core := New(Config{}, &fakeSink{}, slog.Disabled)
	deck := cards.NewDeck52()
	shuffled, _, err := core.Shuffle("table-1", deck)
	require.NoError(t, err)

	commitment, err := core.Commit("table-1", "hand-1", shuffled)
	require.NoError(t, err)

	tampered := append([]cards.Card{}, shuffled...)
	tampered[0], tampered[1] = tampered[1], tampered[0]

	err = VerifyReveal(tampered, commitment)
	require.Error(t, err)
}

func TestRateLimitTripped(t *testing.T) {
	core := New(Config{OpsPerMinute: 2}, &fakeSink{}, slog.Disabled)
	deck := cards.NewDeck52()

	_, _, err := core.Shuffle("table-1", deck)
	require.NoError(t, err)
	_, _, err = core.Shuffle("table-1", deck)
	require.NoError(t, err)
	_, _, err = core.Shuffle("table-1", deck)
	require.ErrorIs(t, err, ErrRateLimited)
}

func TestAuditBufferFlushesOnBatchThreshold(t *testing.T) {
	sink := &fakeSink{}
	core := New(Config{AuditBatchSize: 2, OpsPerMinute: 100}, sink, slog.Disabled)
	deck := cards.NewDeck52()

	_, _, err := core.Shuffle("table-1", deck)
	require.NoError(t, err)
	require.Empty(t, sink.batches)

	_, _, err = core.Shuffle("table-1", deck)
	require.NoError(t, err)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.batches, 1)
	require.Len(t, sink.batches[0], 2)
}

func TestIdenticalOpRunsRaiseSecurityAlert(t *testing.T) {
	sink := &fakeSink{}
	core := New(Config{AuditBatchSize: 1000, OpsPerMinute: 10000}, sink, slog.Disabled)
	deck := cards.NewDeck52()

	for i := 0; i < 25; i++ {
		_, _, err := core.Shuffle("table-1", deck)
		require.NoError(t, err)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.NotEmpty(t, sink.alerts)
}
