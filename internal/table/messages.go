// Package table implements the per-table actor: a single goroutine that
// owns one table's betting state, deck, and player map, serializing every
// player action and supervisor command through a bounded inbox.
package table

import (
	"time"

	"github.com/vctt94/pokercore/internal/betting"
)

// CommandKind identifies the kind of session-originated command.
type CommandKind string

const (
	CommandJoinSeat     CommandKind = "join_seat"
	CommandStandUp      CommandKind = "stand_up"
	CommandSitOut       CommandKind = "sit_out"
	CommandSitIn        CommandKind = "sit_in"
	CommandPlayerAction CommandKind = "player_action"
	CommandChat         CommandKind = "chat"
	CommandLeave        CommandKind = "leave"
	CommandReady        CommandKind = "ready"
	CommandDisconnect   CommandKind = "disconnect"
)

// Command is one session-originated request, delivered into the table
// actor's inbox as an owned value.
type Command struct {
	PlayerID       string
	IdempotencyKey string
	Kind           CommandKind

	// join_seat
	Seat   int
	BuyIn  int64

	// player_action
	Action betting.ActionKind
	Amount int64

	// chat
	Text string

	// Reply carries the command's outcome back to the originating session.
	// The table actor always sends exactly once on Reply before moving on
	// to the next inbox message.
	Reply chan CommandResult
}

// CommandResult is what the table actor replies to the originating session
// with once a command has been applied or rejected.
type CommandResult struct {
	Events    []betting.Event
	Rejection *betting.Rejection
	Err       error
}

// SupervisorKind identifies a message from the tournament coordinator.
type SupervisorKind string

const (
	SupervisorMovePlayerHere SupervisorKind = "move_player_here"
	SupervisorRemovePlayer   SupervisorKind = "remove_player"
	SupervisorCloseTable     SupervisorKind = "close_table"
	SupervisorPause          SupervisorKind = "pause"
	SupervisorResume         SupervisorKind = "resume"
	SupervisorLevelChange    SupervisorKind = "level_change"
	SupervisorStart          SupervisorKind = "start"
)

// SupervisorMessage is a one-way, fire-and-forget instruction from the
// tournament coordinator. There is no synchronous reply; a move that cannot
// be applied is dropped, and no event reports it to the coordinator.
type SupervisorMessage struct {
	Kind         SupervisorKind
	PlayerID     string
	Seat         int
	Chips        int64
	Reason       string
	SmallBlind   int64
	BigBlind     int64
	Level        int
	FeatureTable bool
}

// tick is the actor's own periodic timer message, used to drive hand
// start/advance and timeout checks without ever being awaited by anything
// external.
type tick struct {
	reason string
	seat   int // for action-timeout ticks, which seat's timer fired
	gen    int // generation counter, to ignore stale timers that fired after being superseded
	fired  time.Time
}

// inboxMessage is the sum type of everything that can arrive in a table
// actor's inbox, so a single channel preserves FIFO ordering across
// commands, supervisor messages, and timer ticks.
type inboxMessage struct {
	command    *Command
	supervisor *SupervisorMessage
	tick       *tick
	bind       *sessionBind
}

type sessionBind struct {
	playerID string
	sub      Subscriber
	unbind   bool
}
