package tournament

import (
	"testing"
	"time"

	"github.com/decred/slog"
	"github.com/stretchr/testify/require"

	"github.com/vctt94/pokercore/internal/table"
)

type fakeHandle struct {
	msgs []table.SupervisorMessage
}

func (f *fakeHandle) SendSupervisor(msg table.SupervisorMessage) { f.msgs = append(f.msgs, msg) }

func newTestCoordinator(t *testing.T, cfg Config) (*Coordinator, map[string]*fakeHandle) {
	handles := make(map[string]*fakeHandle)
	factory := func(tableID string) TableHandle {
		h := &fakeHandle{}
		handles[tableID] = h
		return h
	}
	c := New("t1", cfg, factory, slog.Disabled)
	go c.Run()
	return c, handles
}

func TestRegisterAssignsSeatsAndFillsTablesBeforeCreatingNew(t *testing.T) {
	cfg := Config{MaxPlayers: 4, MinPlayers: 2, SeatsPerTable: 2, StartingChips: 1000}
	c, handles := newTestCoordinator(t, cfg)

	for i := 0; i < 4; i++ {
		res := c.Send(Command{Kind: CmdRegister, PlayerID: string(rune('a' + i))})
		require.Empty(t, res.ErrorCode)
	}
	require.Len(t, handles, 2)
}

func TestRegisterDuplicateRejected(t *testing.T) {
	cfg := Config{MaxPlayers: 10, MinPlayers: 2, SeatsPerTable: 9, StartingChips: 1000}
	c, _ := newTestCoordinator(t, cfg)

	res := c.Send(Command{Kind: CmdRegister, PlayerID: "alice"})
	require.Empty(t, res.ErrorCode)
	res = c.Send(Command{Kind: CmdRegister, PlayerID: "alice"})
	require.Equal(t, "duplicate_registration", res.ErrorCode)
}

func TestRegisterTournamentFullRejected(t *testing.T) {
	cfg := Config{MaxPlayers: 1, MinPlayers: 1, SeatsPerTable: 9, StartingChips: 1000}
	c, _ := newTestCoordinator(t, cfg)

	res := c.Send(Command{Kind: CmdRegister, PlayerID: "alice"})
	require.Empty(t, res.ErrorCode)
	res = c.Send(Command{Kind: CmdRegister, PlayerID: "bob"})
	require.Equal(t, "tournament_full", res.ErrorCode)
}

func TestStartRequiresMinPlayers(t *testing.T) {
	cfg := Config{MaxPlayers: 10, MinPlayers: 3, SeatsPerTable: 9, StartingChips: 1000}
	c, _ := newTestCoordinator(t, cfg)

	c.Send(Command{Kind: CmdRegister, PlayerID: "alice"})
	res := c.Send(Command{Kind: CmdStart})
	require.Equal(t, "insufficient_players", res.ErrorCode)

	c.Send(Command{Kind: CmdRegister, PlayerID: "bob"})
	c.Send(Command{Kind: CmdRegister, PlayerID: "carol"})
	res = c.Send(Command{Kind: CmdStart})
	require.Empty(t, res.ErrorCode)
}

func TestConsolidationAfterEliminationsLeavesOneActiveTable(t *testing.T) {
	cfg := Config{MaxPlayers: 20, MinPlayers: 2, SeatsPerTable: 6, StartingChips: 1000, BlindLevelDuration: time.Hour}
	c, handles := newTestCoordinator(t, cfg)

	for i := 0; i < 14; i++ {
		c.Send(Command{Kind: CmdRegister, PlayerID: string(rune('a' + i))})
	}
	require.True(t, len(handles) >= 3)

	for i := 0; i < 9; i++ {
		c.Send(Command{Kind: CmdPlayerEliminated, PlayerID: string(rune('a' + i)), FinishingPosition: 14 - i})
	}

	active := 0
	c.Send(Command{Kind: CmdBroadcast, Message: "noop"})
	// Each rebalance ran synchronously inside its elimination command; the
	// broadcast round-trip above orders this read after all of them.
	for _, info := range c.tables {
		if info.Active {
			active++
		}
	}
	require.Equal(t, 1, active)
}
