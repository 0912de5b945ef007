package table

import (
	"testing"
	"time"

	"github.com/decred/slog"
	"github.com/stretchr/testify/require"

	"github.com/vctt94/pokercore/internal/betting"
	"github.com/vctt94/pokercore/internal/rng"
)

type fakeSub struct {
	playerID string
	messages chan OutboundMessage
}

func newFakeSub(playerID string) *fakeSub {
	return &fakeSub{playerID: playerID, messages: make(chan OutboundMessage, 64)}
}

func (f *fakeSub) Send(msg OutboundMessage) {
	select {
	case f.messages <- msg:
	default:
	}
}
func (f *fakeSub) PlayerID() string { return f.playerID }

func (f *fakeSub) waitFor(t *testing.T, msgType string, timeout time.Duration) OutboundMessage {
	deadline := time.After(timeout)
	for {
		select {
		case m := <-f.messages:
			if m.Type == msgType {
				return m
			}
		case <-deadline:
			t.Fatalf("timed out waiting for message type %q", msgType)
		}
	}
}

type nopAudit struct{}

func (nopAudit) AppendRecord(string, AuditRecord) error { return nil }

type nopRNGSink struct{}

func (nopRNGSink) AppendBatch(string, []rng.AuditRecord) error { return nil }
func (nopRNGSink) AppendAlert(rng.SecurityAlert) error          { return nil }

func newTestActor(t *testing.T) *Actor {
	core := rng.New(rng.Config{OpsPerMinute: 10000}, nopRNGSink{}, slog.Disabled)
	cfg := betting.Config{MaxSeats: 2, SmallBlind: 5, BigBlind: 10, ActionTimeout: 2 * time.Second}
	a := NewActor("table-1", cfg, core, nopAudit{}, 0, 0, slog.Disabled)
	go a.Run()
	t.Cleanup(func() { a.SendSupervisor(SupervisorMessage{Kind: SupervisorCloseTable}) })
	return a
}

func TestHeadsUpHandStartsAndFoldEndsIt(t *testing.T) {
	a := newTestActor(t)

	subA := newFakeSub("alice")
	subB := newFakeSub("bob")
	a.Bind("alice", subA)
	a.Bind("bob", subB)

	res := a.Send(Command{PlayerID: "alice", Kind: CommandJoinSeat, Seat: 0, BuyIn: 1000})
	require.NoError(t, res.Err)
	res = a.Send(Command{PlayerID: "bob", Kind: CommandJoinSeat, Seat: 1, BuyIn: 1000})
	require.NoError(t, res.Err)

	subA.waitFor(t, "hand_started", 2*time.Second)

	// Whichever seat is active folds; the other should be declared winner
	// via hand_completed.
	res = a.Send(Command{PlayerID: "alice", Kind: CommandPlayerAction, Action: betting.ActionFold})
	if res.Rejection != nil {
		res = a.Send(Command{PlayerID: "bob", Kind: CommandPlayerAction, Action: betting.ActionFold})
	}
	require.Nil(t, res.Rejection)

	subA.waitFor(t, "hand_completed", 2*time.Second)
}

func TestJoinSeatTakenRejected(t *testing.T) {
	a := newTestActor(t)
	sub := newFakeSub("alice")
	a.Bind("alice", sub)

	res := a.Send(Command{PlayerID: "alice", Kind: CommandJoinSeat, Seat: 0, BuyIn: 1000})
	require.NoError(t, res.Err)

	res = a.Send(Command{PlayerID: "carol", Kind: CommandJoinSeat, Seat: 0, BuyIn: 500})
	require.Error(t, res.Err)
}

func TestIdempotentJoinReplaysResult(t *testing.T) {
	a := newTestActor(t)
	sub := newFakeSub("alice")
	a.Bind("alice", sub)

	cmd := Command{PlayerID: "alice", Kind: CommandJoinSeat, Seat: 0, BuyIn: 1000, IdempotencyKey: "join-1"}
	r1 := a.Send(cmd)
	require.NoError(t, r1.Err)

	r2 := a.Send(cmd)
	require.Equal(t, r1.Err, r2.Err)
}
