package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vctt94/pokercore/internal/rng"
	"github.com/vctt94/pokercore/internal/table"
)

func openTestDB(t *testing.T) *DB {
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestAppendBatchAndRangeQuery(t *testing.T) {
	db := openTestDB(t)

	now := time.Now().UTC().Truncate(time.Second)
	recs := []rng.AuditRecord{
		{Op: "shuffle", HandID: "h1", Timestamp: now, EntropyBytes: 32, InputHash: "aa", OutputHash: "bb"},
		{Op: "commit", HandID: "h1", Timestamp: now.Add(time.Second), EntropyBytes: 40, InputHash: "cc", OutputHash: "dd"},
	}
	require.NoError(t, db.AppendBatch("table-1", recs))

	got, err := db.RecordsInRange("table-1", now.Add(-time.Minute), now.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "shuffle", got[0].Op)
}

func TestAppendAlert(t *testing.T) {
	db := openTestDB(t)
	err := db.AppendAlert(rng.SecurityAlert{TableID: "table-1", Severity: "warning", Reason: "rate approaching limit", Timestamp: time.Now()})
	require.NoError(t, err)
}

func TestAppendRecordSatisfiesTableAuditAppender(t *testing.T) {
	db := openTestDB(t)
	var appender table.AuditAppender = db
	err := appender.AppendRecord("table-1", table.AuditRecord{Op: "join_seat", TableID: "table-1", Timestamp: time.Now(), Metadata: map[string]string{"player_id": "alice"}})
	require.NoError(t, err)
}

func TestRNGSnapshotRoundTrip(t *testing.T) {
	db := openTestDB(t)
	snap := rng.StateSnapshot{TableID: "table-1", OpCounter: 42, LastRefresh: time.Now().UTC().Truncate(time.Second), Timestamp: time.Now().UTC().Truncate(time.Second)}
	require.NoError(t, db.SaveRNGSnapshot(snap))

	got, err := db.LatestRNGSnapshot("table-1")
	require.NoError(t, err)
	require.Equal(t, snap.OpCounter, got.OpCounter)
}

func TestCleanupRemovesOldRows(t *testing.T) {
	db := openTestDB(t)
	old := time.Now().Add(-100 * 24 * time.Hour)
	require.NoError(t, db.AppendBatch("table-1", []rng.AuditRecord{
		{Op: "shuffle", HandID: "h0", Timestamp: old, InputHash: "aa", OutputHash: "bb"},
	}))
	require.NoError(t, db.Cleanup(time.Now().Add(-DefaultRetention)))

	got, err := db.RecordsInRange("table-1", old.Add(-time.Hour), time.Now())
	require.NoError(t, err)
	require.Empty(t, got)
}
