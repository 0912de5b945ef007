package table

import (
	"fmt"
	"time"

	"github.com/decred/slog"
	"github.com/google/uuid"

	"github.com/vctt94/pokercore/internal/betting"
	"github.com/vctt94/pokercore/internal/cards"
	"github.com/vctt94/pokercore/internal/deck"
	"github.com/vctt94/pokercore/internal/idempotency"
	"github.com/vctt94/pokercore/internal/rng"
)

// AuditAppender is the narrow slice of the audit store the table actor
// needs: one AppendRecord call per audited operation, written straight
// through with no batching.
type AuditAppender interface {
	AppendRecord(tableID string, record AuditRecord) error
}

// AuditRecord mirrors rng.AuditRecord's shape for table-level operations
// (joins, actions, hand lifecycle), kept as its own type since the table
// actor audits things the RNG core never sees.
type AuditRecord struct {
	Op        string
	TableID   string
	HandID    string
	Timestamp time.Time
	Metadata  map[string]string
}

// HandDelayAfterFinish is how long the actor waits after a hand finishes
// before starting the next one.
const HandDelayAfterFinish = 3 * time.Second

// Actor is the single-writer owner of one table's state. Every field below
// is only ever touched from the goroutine started by Run; all external
// interaction happens by sending into inbox and, for commands, waiting on
// the per-command Reply channel.
type Actor struct {
	tableID string
	log     slog.Logger
	rngCore *rng.Core
	audit   AuditAppender

	inbox chan inboxMessage

	state      betting.State
	deckMgr    *deck.Manager
	subs       map[string]Subscriber
	handActive bool
	paused     bool
	closed     bool
	prevButton int

	actionTimer    *time.Timer
	actionGen      int
	handStartTimer *time.Timer

	idemCache *idempotency.Cache
}

// NewActor constructs a table actor. Run must be called to start its
// goroutine; nothing is safe to touch concurrently before or after that
// except Send/SendSupervisor/Bind, which all funnel through the inbox.
// idemTTL and idemCoalesceWindow configure the actor's own idempotency
// cache (zero means the package defaults). Since the actor is a
// single-writer goroutine, Execute calls here never overlap, so
// StrategyCache alone is sufficient to dedup replayed commands. That
// strategy never coalesces, so idemCoalesceWindow has no effect on the
// actor's cache.
func NewActor(tableID string, cfg betting.Config, rngCore *rng.Core, audit AuditAppender, idemTTL, idemCoalesceWindow time.Duration, log slog.Logger) *Actor {
	return &Actor{
		tableID: tableID,
		log:     log,
		rngCore: rngCore,
		audit:   audit,
		inbox:   make(chan inboxMessage, 256),
		state: betting.State{
			TableID: tableID,
			Config:  cfg,
			Seats:   make(map[int]*betting.Player),
			Phase:   betting.PhaseWaiting,
			Button:  -1,
		},
		deckMgr:    deck.NewManager(rngCore),
		subs:       make(map[string]Subscriber),
		prevButton: -1,
		idemCache:  idempotency.New(idemTTL, idemCoalesceWindow, idempotency.DefaultMaxBatch, idempotency.MergeFirst),
	}
}

// Send delivers a command into the actor's inbox and blocks until it has
// been processed, per the single-writer/FIFO ordering model.
func (a *Actor) Send(cmd Command) CommandResult {
	cmd.Reply = make(chan CommandResult, 1)
	a.inbox <- inboxMessage{command: &cmd}
	return <-cmd.Reply
}

// SendSupervisor delivers a fire-and-forget instruction from the
// tournament coordinator. There is no reply, and an instruction that cannot
// be applied is dropped without any event reaching the coordinator.
func (a *Actor) SendSupervisor(msg SupervisorMessage) {
	a.inbox <- inboxMessage{supervisor: &msg}
}

// Bind registers a session's subscriber for broadcast delivery.
func (a *Actor) Bind(playerID string, sub Subscriber) {
	a.inbox <- inboxMessage{bind: &sessionBind{playerID: playerID, sub: sub}}
}

// Unbind removes a session's subscriber.
func (a *Actor) Unbind(playerID string) {
	a.inbox <- inboxMessage{bind: &sessionBind{playerID: playerID, unbind: true}}
}

// Run is the actor's single goroutine: it processes exactly one inbox
// message at a time, the sole writer to every field above, and never
// awaits another table actor synchronously.
func (a *Actor) Run() {
	for msg := range a.inbox {
		if a.closed {
			a.drainClosed(msg)
			continue
		}
		switch {
		case msg.command != nil:
			a.handleCommand(msg.command)
		case msg.supervisor != nil:
			a.handleSupervisor(msg.supervisor)
		case msg.tick != nil:
			a.handleTick(msg.tick)
		case msg.bind != nil:
			a.handleBind(msg.bind)
		}
	}
}

func (a *Actor) drainClosed(msg inboxMessage) {
	if msg.command != nil && msg.command.Reply != nil {
		msg.command.Reply <- CommandResult{Err: fmt.Errorf("table_closed")}
	}
}

func (a *Actor) handleBind(b *sessionBind) {
	if b.unbind {
		delete(a.subs, b.playerID)
		return
	}
	a.subs[b.playerID] = b.sub
	if _, p, ok := a.findSeat(b.playerID); ok && p.Status == betting.StatusDisconnected {
		p.Status = betting.StatusActive
		p.DisconnectedAt = time.Time{}
		a.appendAudit("reconnect", map[string]string{"player_id": b.playerID})
	}
	// Reconnection: replay the latest snapshot before any new command from
	// this session is forwarded.
	view := buildView(a.state, b.playerID)
	b.sub.Send(OutboundMessage{Type: "state_update", StateUpdate: &view})
}

func (a *Actor) handleCommand(cmd *Command) {
	key := ""
	if cmd.IdempotencyKey != "" {
		key = cmd.PlayerID + ":" + cmd.IdempotencyKey
	}
	result, _ := a.idemCache.Execute(key, idempotency.StrategyCache, false, func() (any, error) {
		cr := a.dispatchCommand(cmd)
		if cr.Err != nil {
			return cr, cr.Err
		}
		if cr.Rejection != nil {
			return cr, fmt.Errorf("%s", cr.Rejection.Code)
		}
		return cr, nil
	})
	cr, _ := result.(CommandResult)
	cmd.Reply <- cr
}

func (a *Actor) dispatchCommand(cmd *Command) CommandResult {
	switch cmd.Kind {
	case CommandJoinSeat:
		return a.handleJoinSeat(cmd)
	case CommandStandUp:
		return a.handleStandUp(cmd)
	case CommandSitOut:
		return a.setStatus(cmd.PlayerID, betting.StatusSittingOut)
	case CommandSitIn:
		return a.setStatus(cmd.PlayerID, betting.StatusActive)
	case CommandPlayerAction:
		return a.handlePlayerAction(cmd)
	case CommandChat:
		a.broadcastChat(cmd.PlayerID, cmd.Text)
		return CommandResult{}
	case CommandLeave:
		return a.handleLeave(cmd)
	case CommandReady:
		return a.setStatus(cmd.PlayerID, betting.StatusActive)
	case CommandDisconnect:
		return a.handleDisconnect(cmd)
	default:
		return CommandResult{Err: fmt.Errorf("unknown_type: %s", cmd.Kind)}
	}
}

func (a *Actor) findSeat(playerID string) (int, *betting.Player, bool) {
	for seat, p := range a.state.Seats {
		if p.PlayerID == playerID {
			return seat, p, true
		}
	}
	return 0, nil, false
}

func (a *Actor) handleJoinSeat(cmd *Command) CommandResult {
	if _, exists := a.state.Seats[cmd.Seat]; exists {
		return CommandResult{Err: fmt.Errorf("seat_taken")}
	}
	if cmd.Seat < 0 || cmd.Seat >= a.state.Config.MaxSeats {
		return CommandResult{Err: fmt.Errorf("invalid_seat")}
	}
	a.state.Seats[cmd.Seat] = &betting.Player{
		PlayerID: cmd.PlayerID,
		Seat:     cmd.Seat,
		Stack:    cmd.BuyIn,
		Status:   betting.StatusActive,
	}
	a.appendAudit("join_seat", map[string]string{"player_id": cmd.PlayerID, "seat": fmt.Sprint(cmd.Seat)})
	a.broadcastState()
	a.maybeScheduleHandStart()
	return CommandResult{}
}

func (a *Actor) handleStandUp(cmd *Command) CommandResult {
	seat, p, ok := a.findSeat(cmd.PlayerID)
	if !ok {
		return CommandResult{Err: fmt.Errorf("not_seated")}
	}
	if !a.handActive || p.Folded || p.AllIn {
		delete(a.state.Seats, seat)
		a.appendAudit("stand_up", map[string]string{"player_id": cmd.PlayerID})
		a.broadcastState()
		return CommandResult{}
	}
	p.Status = betting.StatusSittingOut
	return CommandResult{}
}

func (a *Actor) handleLeave(cmd *Command) CommandResult {
	res := a.handleStandUp(cmd)
	delete(a.subs, cmd.PlayerID)
	return res
}

func (a *Actor) setStatus(playerID string, status betting.SeatStatus) CommandResult {
	_, p, ok := a.findSeat(playerID)
	if !ok {
		return CommandResult{Err: fmt.Errorf("not_seated")}
	}
	p.Status = status
	a.broadcastState()
	a.maybeScheduleHandStart()
	return CommandResult{}
}

// handleDisconnect marks a seat disconnected with a grace period; the seat
// keeps counting as active-and-connected until DisconnectGrace elapses, so
// a reconnect within the window resumes play with the remaining time bank.
func (a *Actor) handleDisconnect(cmd *Command) CommandResult {
	_, p, ok := a.findSeat(cmd.PlayerID)
	if !ok {
		return CommandResult{}
	}
	p.Status = betting.StatusDisconnected
	p.DisconnectedAt = time.Now()
	a.appendAudit("disconnect", map[string]string{"player_id": cmd.PlayerID})
	a.broadcastState()
	return CommandResult{}
}

func (a *Actor) broadcastChat(playerID, text string) {
	for _, sub := range a.subs {
		sub.Send(OutboundMessage{Type: "chat", Chat: &ChatPayload{PlayerID: playerID, Text: text}})
	}
}

func (a *Actor) handlePlayerAction(cmd *Command) CommandResult {
	if !a.handActive {
		return CommandResult{Rejection: &betting.Rejection{Code: betting.CodeInvalidPhase, Message: "no hand in progress"}}
	}
	seat, _, ok := a.findSeat(cmd.PlayerID)
	if !ok {
		return CommandResult{Err: fmt.Errorf("not_seated")}
	}

	a.cancelActionTimer()

	next, events, rej := betting.Apply(a.state, betting.Action{Seat: seat, Kind: cmd.Action, Amount: cmd.Amount}, time.Now())
	if rej != nil {
		return CommandResult{Rejection: rej}
	}

	a.appendAudit("player_action", map[string]string{"player_id": cmd.PlayerID, "action": string(cmd.Action)})
	a.state = next
	a.broadcastState()
	a.afterApply(events)

	return CommandResult{Events: events}
}

func (a *Actor) afterApply(events []betting.Event) {
	for _, ev := range events {
		if ev.Kind == betting.EventPhaseAdvanced {
			a.dealForPhase(ev.Phase)
		}
		if ev.Kind == betting.EventHandComplete || (ev.Kind == betting.EventShowdown) {
			a.finishHand(events)
			return
		}
	}
	if a.state.Phase == betting.PhaseFinished {
		a.finishHand(events)
		return
	}
	if isBettingPhase(a.state.Phase) {
		a.scheduleActionTimer()
	}
}

func isBettingPhase(p betting.Phase) bool {
	switch p {
	case betting.PhasePreFlop, betting.PhaseFlop, betting.PhaseTurn, betting.PhaseRiver:
		return true
	default:
		return false
	}
}

func (a *Actor) dealForPhase(phase betting.Phase) {
	switch phase {
	case betting.PhaseFlop:
		flop, err := a.deckMgr.DealFlop()
		if err != nil {
			a.escalate(fatalError("deal_failed", "failed dealing flop", err))
			return
		}
		a.state.Community = append(a.state.Community, flop...)
		betting.InitializeActiveSeat(&a.state, time.Now())
	case betting.PhaseTurn, betting.PhaseRiver:
		c, err := a.deckMgr.DealOne()
		if err != nil {
			a.escalate(fatalError("deal_failed", "failed dealing street", err))
			return
		}
		a.state.Community = append(a.state.Community, c)
		betting.InitializeActiveSeat(&a.state, time.Now())
	}
	a.broadcastState()
}

func (a *Actor) finishHand(events []betting.Event) {
	a.handActive = false
	a.state.Phase = betting.PhaseFinished

	var winners []betting.WinnerShare
	for _, ev := range events {
		if ev.Winners != nil {
			winners = ev.Winners
		}
	}
	hashStr := fmt.Sprintf("%x", a.deckMgr.Commitment().Hash)

	revealedHands := make(map[int][]cards.Card)
	for seat, p := range a.state.Seats {
		if !p.Folded {
			revealedHands[seat] = p.HoleCards
		}
	}

	for _, sub := range a.subs {
		sub.Send(OutboundMessage{Type: "hand_completed", HandCompleted: &HandCompletedPayload{
			Winners:        winners,
			RevealedHands:  revealedHands,
			DeckRevealHash: hashStr,
		}})
	}

	a.appendAudit("hand_completed", map[string]string{"hand_number": fmt.Sprint(a.state.HandNumber)})
	a.broadcastState()

	for seat, p := range a.state.Seats {
		if p.Stack <= 0 {
			p.Status = betting.StatusEliminated
			delete(a.state.Seats, seat)
		}
	}

	a.state.Phase = betting.PhaseWaiting
	a.scheduleHandStartAfterDelay(HandDelayAfterFinish)
}

func (a *Actor) escalate(err *ActorError) {
	a.log.Errorf("table %s: fatal: %v", a.tableID, err)
	a.closed = true
	for _, sub := range a.subs {
		sub.Send(OutboundMessage{Type: "table_closed", ErrorCode: err.Code, ErrorMessage: err.Message})
	}
}

func (a *Actor) appendAudit(op string, meta map[string]string) {
	if a.audit == nil {
		return
	}
	rec := AuditRecord{Op: op, TableID: a.tableID, Timestamp: time.Now(), Metadata: meta}
	if err := a.audit.AppendRecord(a.tableID, rec); err != nil {
		a.log.Warnf("table %s: audit append failed: %v", a.tableID, err)
	}
}

func newHandID() string { return uuid.NewString() }
