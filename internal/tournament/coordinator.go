package tournament

import (
	"fmt"
	"time"

	"github.com/decred/slog"
	"github.com/google/uuid"

	"github.com/vctt94/pokercore/internal/table"
)

// TableHandle is the coordinator's view of a table actor: supervisor
// instructions only. The coordinator never touches betting state directly;
// every table actor remains the sole writer of its own seats and hand.
type TableHandle interface {
	SendSupervisor(msg table.SupervisorMessage)
}

// TableFactory constructs and starts a new table actor for tableID,
// returning a handle the coordinator can send supervisor messages to. The
// caller (main, typically) is responsible for also registering the handle
// with the session layer's table registry so clients can attach to it.
type TableFactory func(tableID string) TableHandle

// CommandKind identifies a coordinator operation.
type CommandKind string

const (
	CmdRegister         CommandKind = "register"
	CmdStart            CommandKind = "start"
	CmdPlayerEliminated CommandKind = "player_eliminated"
	CmdUpdateChipCount  CommandKind = "update_chip_count"
	CmdBreak            CommandKind = "break"
	CmdBroadcast        CommandKind = "broadcast"
	CmdTableFailure     CommandKind = "table_failure"
)

// Command is one coordinator operation, delivered through Send and
// processed by the coordinator's single goroutine.
type Command struct {
	Kind              CommandKind
	PlayerID          string
	TableID           string
	FinishingPosition int
	ChipCount         int64
	BreakDuration     time.Duration
	Message           string
	Reason            string
	Reply             chan CommandResult
}

// CommandResult reports a command's outcome. ErrorCode is one of the
// tournament error codes (tournament_full, duplicate_registration,
// registration_closed, insufficient_players) or empty on success.
type CommandResult struct {
	ErrorCode string
	TableID   string
	Seat      int
}

type tick struct{ reason string }

type inboxMessage struct {
	command *Command
	tick    *tick
}

// Coordinator is the single-writer owner of one tournament's registration,
// level, and table-balancing state.
type Coordinator struct {
	id       string
	cfg      Config
	log      slog.Logger
	newTable TableFactory

	inbox chan inboxMessage

	status    Status
	startTime time.Time
	level     int
	onBreak   bool
	levelTimer *time.Timer

	players       map[string]*PlayerEntry
	tables        map[string]*TableInfo
	tableHandles  map[string]TableHandle
	occupiedSeats map[string]map[int]bool
	tableSeq      int
}

// New constructs a tournament coordinator in the registering state. Run
// must be called to start its goroutine.
func New(id string, cfg Config, newTable TableFactory, log slog.Logger) *Coordinator {
	return &Coordinator{
		id:            id,
		cfg:           cfg.withDefaults(),
		log:           log,
		newTable:      newTable,
		inbox:         make(chan inboxMessage, 256),
		status:        StatusRegistering,
		players:       make(map[string]*PlayerEntry),
		tables:        make(map[string]*TableInfo),
		tableHandles:  make(map[string]TableHandle),
		occupiedSeats: make(map[string]map[int]bool),
	}
}

// Send delivers a command and blocks for its result, mirroring table.Actor's
// request-reply shape.
func (c *Coordinator) Send(cmd Command) CommandResult {
	cmd.Reply = make(chan CommandResult, 1)
	c.inbox <- inboxMessage{command: &cmd}
	return <-cmd.Reply
}

// Run is the coordinator's single goroutine.
func (c *Coordinator) Run() {
	for msg := range c.inbox {
		switch {
		case msg.command != nil:
			c.handleCommand(msg.command)
		case msg.tick != nil:
			c.handleTick(msg.tick)
		}
	}
}

func (c *Coordinator) handleCommand(cmd *Command) {
	var res CommandResult
	switch cmd.Kind {
	case CmdRegister:
		res = c.handleRegister(cmd)
	case CmdStart:
		res = c.handleStart()
	case CmdPlayerEliminated:
		res = c.handlePlayerEliminated(cmd)
	case CmdUpdateChipCount:
		res = c.handleUpdateChipCount(cmd)
	case CmdBreak:
		res = c.handleBreak(cmd)
	case CmdBroadcast:
		c.broadcastToAllTables(cmd.Message)
	case CmdTableFailure:
		res = c.handleTableFailure(cmd)
	}
	if cmd.Reply != nil {
		cmd.Reply <- res
	}
}

func (c *Coordinator) handleRegister(cmd *Command) CommandResult {
	if _, exists := c.players[cmd.PlayerID]; exists {
		return CommandResult{ErrorCode: "duplicate_registration"}
	}
	if len(c.players) >= c.cfg.MaxPlayers && c.cfg.MaxPlayers > 0 {
		return CommandResult{ErrorCode: "tournament_full"}
	}
	if c.status != StatusRegistering {
		if c.cfg.LateRegistrationUntil <= 0 || time.Since(c.startTime) > c.cfg.LateRegistrationUntil {
			return CommandResult{ErrorCode: "registration_closed"}
		}
	}

	tableID, seat := c.assignSeat(cmd.PlayerID)
	c.players[cmd.PlayerID] = &PlayerEntry{
		PlayerID:     cmd.PlayerID,
		TableID:      tableID,
		Seat:         seat,
		ChipCount:    c.cfg.StartingChips,
		RegisteredAt: time.Now(),
	}
	c.tableHandles[tableID].SendSupervisor(table.SupervisorMessage{
		Kind: table.SupervisorMovePlayerHere, PlayerID: cmd.PlayerID, Seat: seat, Chips: c.cfg.StartingChips,
	})
	return CommandResult{TableID: tableID, Seat: seat}
}

// assignSeat finds a table with a free seat, creating one if every active
// table is full.
func (c *Coordinator) assignSeat(playerID string) (string, int) {
	for tableID, info := range c.tables {
		if !info.Active {
			continue
		}
		if seat, ok := c.freeSeat(tableID); ok {
			return tableID, seat
		}
	}
	tableID := c.newTableID()
	handle := c.newTable(tableID)
	c.tableHandles[tableID] = handle
	c.tables[tableID] = &TableInfo{TableID: tableID, CreatedAt: time.Now(), Active: true, IsFeature: tableID == c.cfg.FeatureTableID}
	c.occupiedSeats[tableID] = make(map[int]bool)
	seat, _ := c.freeSeat(tableID)
	return tableID, seat
}

func (c *Coordinator) freeSeat(tableID string) (int, bool) {
	occ := c.occupiedSeats[tableID]
	for s := 0; s < c.cfg.SeatsPerTable; s++ {
		if !occ[s] {
			occ[s] = true
			return s, true
		}
	}
	return 0, false
}

func (c *Coordinator) newTableID() string {
	c.tableSeq++
	return fmt.Sprintf("%s-table-%d-%s", c.id, c.tableSeq, uuid.NewString()[:8])
}

func (c *Coordinator) handleStart() CommandResult {
	active := 0
	for _, p := range c.players {
		if !p.Eliminated {
			active++
		}
	}
	if active < c.cfg.MinPlayers {
		return CommandResult{ErrorCode: "insufficient_players"}
	}
	c.status = StatusInProgress
	c.startTime = time.Now()
	c.level = 1
	for tableID, h := range c.tableHandles {
		_ = tableID
		h.SendSupervisor(table.SupervisorMessage{Kind: table.SupervisorStart, SmallBlind: c.cfg.SmallBlind, BigBlind: c.cfg.BigBlind})
	}
	c.scheduleLevelTimer()
	return CommandResult{}
}

func (c *Coordinator) handleUpdateChipCount(cmd *Command) CommandResult {
	if p, ok := c.players[cmd.PlayerID]; ok {
		p.ChipCount = cmd.ChipCount
	}
	return CommandResult{}
}

func (c *Coordinator) handleBreak(cmd *Command) CommandResult {
	c.onBreak = true
	if c.levelTimer != nil {
		c.levelTimer.Stop()
	}
	for _, h := range c.tableHandles {
		h.SendSupervisor(table.SupervisorMessage{Kind: table.SupervisorPause})
	}
	time.AfterFunc(cmd.BreakDuration, func() {
		c.inbox <- inboxMessage{tick: &tick{reason: "break_over"}}
	})
	return CommandResult{}
}

func (c *Coordinator) broadcastToAllTables(message string) {
	for _, h := range c.tableHandles {
		h.SendSupervisor(table.SupervisorMessage{Kind: table.SupervisorLevelChange, Reason: message})
	}
}

func (c *Coordinator) handleTableFailure(cmd *Command) CommandResult {
	info, ok := c.tables[cmd.TableID]
	if !ok {
		return CommandResult{}
	}
	info.Active = false
	c.rebalance()
	return CommandResult{}
}

func (c *Coordinator) handleTick(tk *tick) {
	switch tk.reason {
	case "level":
		c.level++
		c.broadcastToAllTables(fmt.Sprintf("level %d", c.level))
		for _, h := range c.tableHandles {
			h.SendSupervisor(table.SupervisorMessage{Kind: table.SupervisorLevelChange, Level: c.level})
		}
		c.scheduleLevelTimer()
	case "break_over":
		c.onBreak = false
		for _, h := range c.tableHandles {
			h.SendSupervisor(table.SupervisorMessage{Kind: table.SupervisorResume})
		}
		c.scheduleLevelTimer()
	}
}

func (c *Coordinator) scheduleLevelTimer() {
	if c.onBreak {
		return
	}
	if c.levelTimer != nil {
		c.levelTimer.Stop()
	}
	c.levelTimer = time.AfterFunc(c.cfg.BlindLevelDuration, func() {
		c.inbox <- inboxMessage{tick: &tick{reason: "level"}}
	})
}
