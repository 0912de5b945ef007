package tournament

import (
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/vctt94/pokercore/internal/table"
)

func (c *Coordinator) handlePlayerEliminated(cmd *Command) CommandResult {
	p, ok := c.players[cmd.PlayerID]
	if !ok {
		return CommandResult{}
	}
	p.Eliminated = true
	p.FinishingPlace = cmd.FinishingPosition
	if occ := c.occupiedSeats[p.TableID]; occ != nil {
		delete(occ, p.Seat)
	}
	c.rebalance()
	c.maybeFinish()
	return CommandResult{}
}

func (c *Coordinator) maybeFinish() {
	remaining := 0
	for _, p := range c.players {
		if !p.Eliminated {
			remaining++
		}
	}
	if remaining <= 1 {
		c.status = StatusFinished
		if c.levelTimer != nil {
			c.levelTimer.Stop()
		}
	}
}

// rebalance evaluates table populations after an elimination: consolidating
// to a single final table when the field fits, or computing and executing a
// batched sequence of single-player moves otherwise.
func (c *Coordinator) rebalance() {
	activeTables := c.activeTableIDs()
	if len(activeTables) <= 1 {
		return
	}

	remaining := c.remainingPlayersByTable(activeTables)
	total := 0
	for _, ps := range remaining {
		total += len(ps)
	}

	if total <= c.cfg.SeatsPerTable && len(activeTables) > 1 {
		c.consolidateToFinalTable(remaining)
		return
	}

	counts := make(map[string]int, len(remaining))
	for t, ps := range remaining {
		counts[t] = len(ps)
	}
	if !spreadExceeds(counts, 1) {
		return
	}

	moves := computeMoves(remaining, c.cfg.SeatsPerTable, c.cfg.BalanceStrategy)
	c.executeMoves(moves)
}

func (c *Coordinator) activeTableIDs() []string {
	var ids []string
	for id, info := range c.tables {
		if info.Active {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func (c *Coordinator) remainingPlayersByTable(tableIDs []string) map[string][]*PlayerEntry {
	out := make(map[string][]*PlayerEntry, len(tableIDs))
	for _, id := range tableIDs {
		out[id] = nil
	}
	for _, p := range c.players {
		if p.Eliminated {
			continue
		}
		if _, ok := out[p.TableID]; ok {
			out[p.TableID] = append(out[p.TableID], p)
		}
	}
	return out
}

func spreadExceeds(counts map[string]int, max int) bool {
	lo, hi := -1, -1
	for _, n := range counts {
		if lo == -1 || n < lo {
			lo = n
		}
		if hi == -1 || n > hi {
			hi = n
		}
	}
	return hi-lo > max
}

// consolidateToFinalTable moves every remaining player onto the designated
// feature table, or the earliest-created active table if none was
// designated, and marks every other table inactive.
func (c *Coordinator) consolidateToFinalTable(remaining map[string][]*PlayerEntry) {
	final := c.pickFinalTable(remaining)

	var moves []Move
	for tableID, players := range remaining {
		if tableID == final {
			continue
		}
		for _, p := range players {
			moves = append(moves, Move{PlayerID: p.PlayerID, FromTable: tableID, ToTable: final, Chips: p.ChipCount})
		}
	}
	c.executeMoves(moves)

	for tableID, info := range c.tables {
		if tableID != final {
			info.Active = false
		}
	}
	c.status = StatusFinalTable
}

func (c *Coordinator) pickFinalTable(remaining map[string][]*PlayerEntry) string {
	if info, ok := c.tables[c.cfg.FeatureTableID]; ok && info.Active {
		if _, has := remaining[c.cfg.FeatureTableID]; has {
			return c.cfg.FeatureTableID
		}
	}
	var earliest string
	var earliestAt = int64(-1)
	for tableID := range remaining {
		info := c.tables[tableID]
		if earliestAt == -1 || info.CreatedAt.UnixNano() < earliestAt {
			earliestAt = info.CreatedAt.UnixNano()
			earliest = tableID
		}
	}
	return earliest
}

// computeMoves levels table populations toward floor/ceil(total/numTables),
// giving the ceil targets to the most-populated tables so the fewest players
// move. Tables above their target donate to tables below theirs, both taken
// in table-id order. balance_stacks moves each donor's largest stacks
// first; recipients are picked the same way under both strategies, not by
// their chip totals.
func computeMoves(byTable map[string][]*PlayerEntry, seatsPerTable int, strategy BalanceStrategy) []Move {
	type bucket struct {
		tableID string
		players []*PlayerEntry
	}
	buckets := make([]*bucket, 0, len(byTable))
	tableIDs := make([]string, 0, len(byTable))
	for t := range byTable {
		tableIDs = append(tableIDs, t)
	}
	sort.Strings(tableIDs)
	for _, t := range tableIDs {
		ps := append([]*PlayerEntry(nil), byTable[t]...)
		if strategy == StrategyBalanceStacks {
			sort.Slice(ps, func(i, j int) bool { return ps[i].ChipCount < ps[j].ChipCount })
		}
		buckets = append(buckets, &bucket{tableID: t, players: ps})
	}

	total := 0
	for _, b := range buckets {
		total += len(b.players)
	}
	n := len(buckets)
	base, extra := total/n, total%n
	bySize := append([]*bucket(nil), buckets...)
	sort.SliceStable(bySize, func(i, j int) bool { return len(bySize[i].players) > len(bySize[j].players) })
	target := make(map[string]int, n)
	for i, b := range bySize {
		target[b.tableID] = base
		if i < extra {
			target[b.tableID]++
		}
	}

	var moves []Move
	donorIdx, recvIdx := 0, 0
	for donorIdx < n && recvIdx < n {
		donor := buckets[donorIdx]
		recv := buckets[recvIdx]
		if len(donor.players) <= target[donor.tableID] {
			donorIdx++
			continue
		}
		if donor.tableID == recv.tableID || len(recv.players) >= target[recv.tableID] || len(recv.players) >= seatsPerTable {
			recvIdx++
			continue
		}
		p := donor.players[len(donor.players)-1]
		donor.players = donor.players[:len(donor.players)-1]
		recv.players = append(recv.players, p)
		moves = append(moves, Move{PlayerID: p.PlayerID, FromTable: donor.tableID, ToTable: recv.tableID, Chips: p.ChipCount})
	}
	return moves
}

// batchIndependentMoves groups moves so that within one batch no table id
// appears as a source or destination more than once, letting the batch run
// fully in parallel.
func batchIndependentMoves(moves []Move) [][]Move {
	var batches [][]Move
	remaining := append([]Move(nil), moves...)
	for len(remaining) > 0 {
		var batch []Move
		used := make(map[string]bool)
		var leftover []Move
		for _, m := range remaining {
			if used[m.FromTable] || used[m.ToTable] {
				leftover = append(leftover, m)
				continue
			}
			used[m.FromTable] = true
			used[m.ToTable] = true
			batch = append(batch, m)
		}
		batches = append(batches, batch)
		remaining = leftover
	}
	return batches
}

// executeMoves applies move batches in sequence, each batch's independent
// moves running in parallel via errgroup. A move whose table handle or free
// seat is missing is skipped without logging and does not abort its
// siblings; a move the destination actor drops is not reported back, and
// the coordinator does not re-plan around it.
func (c *Coordinator) executeMoves(moves []Move) {
	for _, batch := range batchIndependentMoves(moves) {
		var g errgroup.Group
		for _, m := range batch {
			m := m
			g.Go(func() error {
				c.applyMove(m)
				return nil
			})
		}
		g.Wait()
	}
}

func (c *Coordinator) applyMove(m Move) {
	fromHandle, ok := c.tableHandles[m.FromTable]
	if !ok {
		return
	}
	toHandle, ok := c.tableHandles[m.ToTable]
	if !ok {
		return
	}
	seat, ok := c.freeSeat(m.ToTable)
	if !ok {
		return
	}

	fromHandle.SendSupervisor(table.SupervisorMessage{Kind: table.SupervisorRemovePlayer, PlayerID: m.PlayerID})
	toHandle.SendSupervisor(table.SupervisorMessage{Kind: table.SupervisorMovePlayerHere, PlayerID: m.PlayerID, Seat: seat, Chips: m.Chips})

	if p, exists := c.players[m.PlayerID]; exists {
		p.TableID = m.ToTable
		p.Seat = seat
	}
}
