package rng

import (
	"fmt"
	"time"
)

// bufferAudit appends a record to a table's pending buffer, flushing to the
// sink when the batch threshold or flush interval is reached. ts.mu must
// already be held by the caller.
func (c *Core) bufferAudit(ts *tableState, tableID string, rec AuditRecord) {
	ts.pending = append(ts.pending, rec)
	ts.recentOps = append(ts.recentOps, rec.Op)
	ts.recentBytes = append(ts.recentBytes, rec.EntropyBytes)
	if len(ts.recentOps) > 200 {
		ts.recentOps = ts.recentOps[len(ts.recentOps)-200:]
		ts.recentBytes = ts.recentBytes[len(ts.recentBytes)-200:]
	}

	c.scanForAnomalies(ts, tableID)

	if ts.lastFlush.IsZero() {
		// The flush interval runs from the first buffered record.
		ts.lastFlush = time.Now()
	}
	due := len(ts.pending) >= c.cfg.AuditBatchSize ||
		time.Since(ts.lastFlush) >= c.cfg.AuditFlushInterval
	if due {
		c.flushLocked(ts, tableID)
	}
}

// FlushIdle flushes any table whose buffer has been quiescent (no new
// records) for at least d, intended to be called from a periodic timer.
func (c *Core) FlushIdle(d time.Duration) {
	c.mu.Lock()
	tableIDs := make([]string, 0, len(c.tables))
	for id := range c.tables {
		tableIDs = append(tableIDs, id)
	}
	c.mu.Unlock()

	for _, id := range tableIDs {
		ts := c.table(id)
		ts.mu.Lock()
		if len(ts.pending) > 0 && time.Since(ts.lastFlush) >= d {
			c.flushLocked(ts, id)
		}
		ts.mu.Unlock()
	}
}

func (c *Core) flushLocked(ts *tableState, tableID string) {
	if len(ts.pending) == 0 {
		ts.lastFlush = time.Now()
		return
	}
	batch := ts.pending
	ts.pending = nil
	ts.lastFlush = time.Now()

	if c.sink == nil {
		return
	}
	if err := c.sink.AppendBatch(tableID, batch); err != nil {
		if c.log != nil {
			c.log.Warnf("rng: audit flush failed for table %s: %v", tableID, err)
		}
	}
}

// scanForAnomalies implements the periodic heuristic scan described for the
// RNG core: excessive ops/min, entropy-per-op outliers, and identical-op
// runs each raise a severity-tagged security alert. ts.mu must already be
// held by the caller.
func (c *Core) scanForAnomalies(ts *tableState, tableID string) {
	const window = 20

	if len(ts.opTimes) >= c.cfg.OpsPerMinute*9/10 {
		c.emitAlert(tableID, "warning", fmt.Sprintf("operation rate approaching limit: %d/%d per minute", len(ts.opTimes), c.cfg.OpsPerMinute))
	}

	n := len(ts.recentOps)
	if n >= window {
		same := true
		for i := n - window; i < n; i++ {
			if ts.recentOps[i] != ts.recentOps[n-1] {
				same = false
				break
			}
		}
		if same {
			c.emitAlert(tableID, "critical", fmt.Sprintf("last %d operations were all %q: possible automation or stuck loop", window, ts.recentOps[n-1]))
		}
	}

	if n >= 5 {
		var sum, sq float64
		for _, b := range ts.recentBytes[n-5:] {
			sum += float64(b)
		}
		mean := sum / 5
		for _, b := range ts.recentBytes[n-5:] {
			d := float64(b) - mean
			sq += d * d
		}
		variance := sq / 5
		if mean > 0 && variance/mean/mean > 4 {
			c.emitAlert(tableID, "warning", "entropy-per-operation outlier detected in recent window")
		}
	}
}

func (c *Core) emitAlert(tableID, severity, reason string) {
	if c.sink == nil {
		return
	}
	alert := SecurityAlert{
		TableID:   tableID,
		Severity:  severity,
		Reason:    reason,
		Timestamp: time.Now(),
	}
	if err := c.sink.AppendAlert(alert); err != nil && c.log != nil {
		c.log.Warnf("rng: failed to append security alert for table %s: %v", tableID, err)
	}
}
