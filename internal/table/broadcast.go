package table

import (
	"github.com/vctt94/pokercore/internal/betting"
	"github.com/vctt94/pokercore/internal/cards"
)

// Subscriber is a weak send-handle into a session's outbound queue. The
// table actor holds these, never a strong reference into session
// internals; a subscriber that can't keep up is the session layer's
// problem to disconnect (slow_consumer), not the table actor's.
type Subscriber interface {
	// Send delivers one outbound message, filtered for this subscriber's
	// player. It must not block the table actor: implementations enqueue
	// onto a bounded per-session queue and return immediately.
	Send(msg OutboundMessage)
	PlayerID() string
}

// OutboundMessage is one server-to-client push, matching the envelope
// types in the session layer's protocol.
type OutboundMessage struct {
	Type           string
	StateUpdate    *PublicTableView
	HandStarted    *HandStartedPayload
	HandCompleted  *HandCompletedPayload
	PlayerJoined   *PlayerEventPayload
	PlayerLeft     *PlayerEventPayload
	Chat           *ChatPayload
	ErrorCode      string
	ErrorMessage   string
}

type HandStartedPayload struct {
	HandNumber     int
	Button         int
	SmallBlind     int64
	BigBlind       int64
	CommitmentHash string
}

type HandCompletedPayload struct {
	Winners        []betting.WinnerShare
	RevealedHands  map[int][]cards.Card
	DeckRevealHash string
}

type PlayerEventPayload struct {
	PlayerID string
	Seat     int
}

type ChatPayload struct {
	PlayerID string
	Text     string
}

// PublicPlayerView is one seat's state as seen by a given viewer: hole
// cards are replaced with a card-back marker unless the viewer owns the
// seat or the hand has reached showdown.
type PublicPlayerView struct {
	PlayerID   string
	Seat       int
	Stack      int64
	CurrentBet int64
	Folded     bool
	AllIn      bool
	Status     betting.SeatStatus
	HoleCards  []cards.Card // nil/empty means "hidden", never a fabricated placeholder value
	CardsHidden bool
}

// PublicTableView is the filtered broadcast of a table's state to one
// particular viewer.
type PublicTableView struct {
	TableID      string
	Phase        betting.Phase
	Pot          int64
	CurrentBet   int64
	Community    []cards.Card
	Button       int
	ActiveSeat   int
	HandNumber   int
	Players      []PublicPlayerView
}

// buildView renders state for viewerID, hiding every other seat's hole
// cards unless the hand is at or past showdown.
func buildView(state betting.State, viewerID string) PublicTableView {
	showAll := state.Phase == betting.PhaseShowdown || state.Phase == betting.PhaseFinished

	players := make([]PublicPlayerView, 0, len(state.Seats))
	for seat, p := range state.Seats {
		view := PublicPlayerView{
			PlayerID:   p.PlayerID,
			Seat:       seat,
			Stack:      p.Stack,
			CurrentBet: p.CurrentBet,
			Folded:     p.Folded,
			AllIn:      p.AllIn,
			Status:     p.Status,
		}
		if p.PlayerID == viewerID || showAll {
			view.HoleCards = p.HoleCards
		} else {
			view.CardsHidden = true
		}
		players = append(players, view)
	}

	return PublicTableView{
		TableID:    state.TableID,
		Phase:      state.Phase,
		Pot:        state.MainPot,
		CurrentBet: state.CurrentBet,
		Community:  state.Community,
		Button:     state.Button,
		ActiveSeat: state.ActiveSeat,
		HandNumber: state.HandNumber,
		Players:    players,
	}
}

// broadcastState pushes a filtered state_update to every subscriber, each
// seeing their own hole cards and nobody else's (until showdown).
func (a *Actor) broadcastState() {
	for _, sub := range a.subs {
		view := buildView(a.state, sub.PlayerID())
		sub.Send(OutboundMessage{Type: "state_update", StateUpdate: &view})
	}
}
