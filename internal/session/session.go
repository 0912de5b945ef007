package session

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/decred/slog"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vctt94/pokercore/internal/betting"
	"github.com/vctt94/pokercore/internal/idempotency"
	"github.com/vctt94/pokercore/internal/table"
	"github.com/vctt94/pokercore/internal/wallet"
)

const (
	// SendQueueSize bounds the per-session outbound backlog; a session that
	// can't drain this fast is disconnected as a slow consumer rather than
	// let its backlog grow unbounded.
	SendQueueSize = 256
	// HeartbeatInterval is how often the server pushes a heartbeat event.
	HeartbeatInterval = 15 * time.Second
	// MaxMissedHeartbeats disconnects a session once this many intervals
	// pass without the client's own heartbeat acknowledgement.
	MaxMissedHeartbeats = 3
	writeTimeout        = 10 * time.Second
	readTimeout         = HeartbeatInterval * (MaxMissedHeartbeats + 1)
)

// Config controls the per-session dedup and rate-limiting tunables,
// threaded down from the process config.
type Config struct {
	IdempotencyTTL     time.Duration
	CoalesceWindow     time.Duration
	RateLimitPerSecond int
}

func (c Config) withDefaults() Config {
	if c.IdempotencyTTL <= 0 {
		c.IdempotencyTTL = idempotency.DefaultTTL
	}
	if c.CoalesceWindow <= 0 {
		c.CoalesceWindow = idempotency.DefaultWindow
	}
	return c
}

// TableHandle is the narrow slice of table.Actor a session needs: sending
// commands, and binding/unbinding itself as a broadcast subscriber.
type TableHandle interface {
	Send(cmd table.Command) table.CommandResult
	Bind(playerID string, sub table.Subscriber)
	Unbind(playerID string)
}

// TableLookup resolves a table_id named in a client message to its actor.
type TableLookup func(tableID string) (TableHandle, bool)

// Session is one authenticated client's duplex connection. It implements
// table.Subscriber so a bound table actor can push broadcasts directly into
// Send.
type Session struct {
	id       string
	playerID string
	conn     *websocket.Conn
	lookup   TableLookup
	log      slog.Logger
	wallet   wallet.Wallet

	send      chan []byte
	closeOnce sync.Once
	closed    chan struct{}

	seq              uint64
	missedHeartbeats int32
	idem             *idempotency.Cache
	limiter          *rateLimiter
	boundTables      map[string]TableHandle
	mu               sync.Mutex
}

// New wraps an already-upgraded websocket connection for an authenticated
// player. w may be nil, in which case buy-ins are never reserved against a
// wallet (useful for tests and deployments with no external ledger).
func New(conn *websocket.Conn, playerID string, lookup TableLookup, w wallet.Wallet, cfg Config, log slog.Logger) *Session {
	cfg = cfg.withDefaults()
	return &Session{
		id:          uuid.NewString(),
		playerID:    playerID,
		conn:        conn,
		lookup:      lookup,
		wallet:      w,
		log:         log,
		send:        make(chan []byte, SendQueueSize),
		closed:      make(chan struct{}),
		idem:        idempotency.New(cfg.IdempotencyTTL, cfg.CoalesceWindow, idempotency.DefaultMaxBatch, idempotency.MergeFirst),
		limiter:     newRateLimiter(cfg.RateLimitPerSecond),
		boundTables: make(map[string]TableHandle),
	}
}

// PlayerID satisfies table.Subscriber.
func (s *Session) PlayerID() string { return s.playerID }

// Send satisfies table.Subscriber: a table actor broadcast is framed as an
// envelope and queued for delivery. A full queue disconnects the session as
// a slow consumer rather than block the table actor's single writer.
func (s *Session) Send(msg table.OutboundMessage) {
	env := Envelope{
		Type:      MessageType(msg.Type),
		Timestamp: time.Now(),
		Seq:       atomic.AddUint64(&s.seq, 1),
	}
	env.Payload, _ = json.Marshal(msg)
	s.enqueue(env)
}

func (s *Session) enqueue(env Envelope) {
	b, err := json.Marshal(env)
	if err != nil {
		return
	}
	select {
	case s.send <- b:
	default:
		s.disconnect(ErrCodeSlowConsumer, "send queue full")
	}
}

// Run drives the session until the connection closes: starts the write
// pump, then blocks processing inbound messages on the calling goroutine.
func (s *Session) Run() {
	go s.writePump()
	go s.heartbeatLoop()

	s.enqueue(Envelope{
		Type:      TypeConnectionAck,
		Timestamp: time.Now(),
		Payload:   mustMarshal(ConnectionAckPayload{SessionID: s.id, HeartbeatInterval: HeartbeatInterval}),
	})

	s.readPump()
}

func mustMarshal(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

func (s *Session) readPump() {
	defer s.disconnect("", "connection closed")

	s.conn.SetReadDeadline(time.Now().Add(readTimeout))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			s.enqueue(errorEnvelope("", ErrCodeUnknownType, "malformed envelope"))
			continue
		}
		s.handleInbound(env)
	}
}

func (s *Session) handleInbound(env Envelope) {
	switch env.Type {
	case TypeHeartbeat:
		atomic.StoreInt32(&s.missedHeartbeats, 0)
	case TypeJoinTable:
		s.handleJoinTable(env)
	case TypeLeaveTable:
		s.handleLeaveTable(env)
	case TypePlayerAction:
		s.handlePlayerAction(env)
	case TypeChat:
		s.handleChat(env)
	default:
		s.enqueue(errorEnvelope(env.CorrelationID, ErrCodeUnknownType, fmt.Sprintf("unknown type %q", env.Type)))
	}
}

func (s *Session) resolveTable(tableID string) (TableHandle, bool) {
	s.mu.Lock()
	t, ok := s.boundTables[tableID]
	s.mu.Unlock()
	if ok {
		return t, true
	}
	t, ok = s.lookup(tableID)
	if !ok {
		return nil, false
	}
	s.mu.Lock()
	s.boundTables[tableID] = t
	s.mu.Unlock()
	t.Bind(s.playerID, s)
	return t, true
}

func (s *Session) handleJoinTable(env Envelope) {
	var p JoinTablePayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		s.enqueue(errorEnvelope(env.CorrelationID, ErrCodeUnknownType, "malformed join_table payload"))
		return
	}
	t, ok := s.resolveTable(p.TableID)
	if !ok {
		s.enqueue(errorEnvelope(env.CorrelationID, ErrCodeInvalidPhase, "unknown table"))
		return
	}
	if s.wallet != nil && p.BuyIn > 0 {
		if err := s.wallet.Reserve(s.playerID, p.BuyIn); err != nil {
			s.enqueue(errorEnvelope(env.CorrelationID, ErrCodeInsufficientChips, err.Error()))
			return
		}
	}
	res := s.executeCommand(env, t, table.Command{
		PlayerID: s.playerID, Kind: table.CommandJoinSeat, Seat: p.Seat, BuyIn: p.BuyIn,
	})
	if !res && s.wallet != nil && p.BuyIn > 0 {
		s.wallet.Release(s.playerID, p.BuyIn)
	}
}

func (s *Session) handleLeaveTable(env Envelope) {
	var p JoinTablePayload
	json.Unmarshal(env.Payload, &p)
	t, ok := s.resolveTable(p.TableID)
	if !ok {
		return
	}
	s.executeCommand(env, t, table.Command{PlayerID: s.playerID, Kind: table.CommandLeave})
	s.mu.Lock()
	delete(s.boundTables, p.TableID)
	s.mu.Unlock()
	t.Unbind(s.playerID)
}

func (s *Session) handlePlayerAction(env Envelope) {
	if !s.limiter.Allow() {
		s.enqueue(errorEnvelope(env.CorrelationID, ErrCodeRateLimited, "too many actions"))
		return
	}
	var p PlayerActionPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		s.enqueue(errorEnvelope(env.CorrelationID, ErrCodeUnknownType, "malformed player_action payload"))
		return
	}
	t, ok := s.resolveTable(p.TableID)
	if !ok {
		s.enqueue(errorEnvelope(env.CorrelationID, ErrCodeInvalidPhase, "unknown table"))
		return
	}
	s.executeCommand(env, t, table.Command{
		PlayerID: s.playerID, Kind: table.CommandPlayerAction,
		Action: betting.ActionKind(p.Action), Amount: p.Amount,
	})
}

func (s *Session) handleChat(env Envelope) {
	var p ChatPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return
	}
	t, ok := s.resolveTable(p.TableID)
	if !ok {
		return
	}
	s.executeCommand(env, t, table.Command{PlayerID: s.playerID, Kind: table.CommandChat, Text: p.Text})
}

// executeCommand runs a command through the idempotency cache and replies
// to the caller with the result or a typed error event. It reports whether
// the command succeeded, so callers holding a wallet reservation know
// whether to release it. Strategy is "both": a cached success short-
// circuits replay, and a miss coalesces duplicate in-flight retries (e.g.
// a reconnect racing the original connection for the same idempotency
// key) into one execution before caching the outcome. Only a nil-error
// result is ever cached, so rejections and failures are never replayed.
func (s *Session) executeCommand(env Envelope, t TableHandle, cmd table.Command) bool {
	result, _ := s.idem.Execute(env.IdempotencyKey, idempotency.StrategyBoth, env.Bypass, func() (any, error) {
		cr := t.Send(cmd)
		if cr.Err != nil {
			return cr, cr.Err
		}
		if cr.Rejection != nil {
			return cr, fmt.Errorf("%s", cr.Rejection.Code)
		}
		return cr, nil
	})
	res, _ := result.(table.CommandResult)

	if res.Err != nil {
		s.enqueue(errorEnvelope(env.CorrelationID, res.Err.Error(), res.Err.Error()))
		return false
	}
	if res.Rejection != nil {
		s.enqueue(errorEnvelope(env.CorrelationID, string(res.Rejection.Code), res.Rejection.Message))
		return false
	}
	return true
}

func errorEnvelope(correlationID, code, message string) Envelope {
	return Envelope{
		Type:          TypeError,
		Timestamp:     time.Now(),
		CorrelationID: correlationID,
		Payload:       mustMarshal(ErrorPayload{Code: code, Message: message}),
	}
}

func (s *Session) heartbeatLoop() {
	ticker := time.NewTicker(HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.closed:
			return
		case <-ticker.C:
			if atomic.AddInt32(&s.missedHeartbeats, 1) > MaxMissedHeartbeats {
				s.disconnect(ErrCodeSessionExpired, "missed heartbeat")
				return
			}
			s.enqueue(Envelope{Type: TypeHeartbeat, Timestamp: time.Now()})
		}
	}
}

func (s *Session) writePump() {
	for {
		select {
		case <-s.closed:
			return
		case msg, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}
}

// disconnect closes the connection once, informing every bound table actor
// that this player's seat is now disconnected so button rotation and grace
// period logic apply.
func (s *Session) disconnect(code, reason string) {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.mu.Lock()
		tables := make([]TableHandle, 0, len(s.boundTables))
		for _, t := range s.boundTables {
			tables = append(tables, t)
		}
		s.mu.Unlock()
		for _, t := range tables {
			t.Send(table.Command{PlayerID: s.playerID, Kind: table.CommandDisconnect})
		}
		if code != "" {
			s.log.Warnf("session %s: disconnecting player %s: %s (%s)", s.id, s.playerID, reason, code)
		}
		s.conn.Close()
	})
}
