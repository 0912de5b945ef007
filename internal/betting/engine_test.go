package betting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vctt94/pokercore/internal/cards"
)

func basePlayer(seat int, stack int64) *Player {
	return &Player{PlayerID: "p" + string(rune('0'+seat)), Seat: seat, Stack: stack, Status: StatusActive}
}

func headsUpState() State {
	cfg := Config{MaxSeats: 2, SmallBlind: 50, BigBlind: 100, ActionTimeout: 30 * time.Second}
	s := State{
		TableID: "t1",
		Config:  cfg,
		Seats: map[int]*Player{
			0: basePlayer(0, 10000),
			1: basePlayer(1, 10000),
		},
		Button: 0,
		Phase:  PhasePreFlop,
	}
	if rej := AssignBlinds(&s, time.Now()); rej != nil {
		panic(rej)
	}
	posted, _ := PostBlinds(s)
	posted.ActiveSeat = posted.SBSeat // heads-up: SB (button) acts first pre-flop
	return posted
}

func TestHeadsUpPreFlopFold(t *testing.T) {
	s := headsUpState()
	now := time.Now()

	next, events, rej := Apply(s, Action{Seat: s.ActiveSeat, Kind: ActionFold}, now)
	require.Nil(t, rej)
	require.NotEmpty(t, events)
	require.Equal(t, PhaseFinished, next.Phase)

	// Winner is whichever seat did not fold.
	var winnerSeat int
	for seat, p := range next.Seats {
		if !p.Folded {
			winnerSeat = seat
		}
	}
	require.Equal(t, int64(10000), next.Seats[winnerSeat].Stack+next.Seats[1-winnerSeat].Stack-10000)
}

func TestNotYourTurnRejected(t *testing.T) {
	s := headsUpState()
	wrongSeat := 1 - s.ActiveSeat
	_, _, rej := Apply(s, Action{Seat: wrongSeat, Kind: ActionCheck}, time.Now())
	require.NotNil(t, rej)
	require.Equal(t, CodeNotYourTurn, rej.Code)
}

func TestCheckIllegalFacingBet(t *testing.T) {
	s := headsUpState()
	_, _, rej := Apply(s, Action{Seat: s.ActiveSeat, Kind: ActionCheck}, time.Now())
	require.NotNil(t, rej)
	require.Equal(t, CodeInvalidBetAmount, rej.Code)
}

func TestRaiseBelowMinimumRejected(t *testing.T) {
	s := headsUpState()
	_, _, rej := Apply(s, Action{Seat: s.ActiveSeat, Kind: ActionRaise, Amount: 150}, time.Now())
	require.NotNil(t, rej)
	require.Equal(t, CodeInvalidBetAmount, rej.Code)
}

func TestShortStackAllInCalledConservesChips(t *testing.T) {
	cfg := Config{MaxSeats: 3, SmallBlind: 25, BigBlind: 50}
	s := State{
		TableID: "t1",
		Config:  cfg,
		Seats: map[int]*Player{
			0: basePlayer(0, 200),
			1: basePlayer(1, 1000),
			2: basePlayer(2, 1000),
		},
		Button: 0,
		Phase:  PhasePreFlop,
		Community: []cards.Card{
			{Rank: cards.Two, Suit: cards.Clubs},
			{Rank: cards.Seven, Suit: cards.Diamonds},
			{Rank: cards.Nine, Suit: cards.Hearts},
			{Rank: cards.King, Suit: cards.Spades},
			{Rank: cards.Four, Suit: cards.Clubs},
		},
	}
	s.Seats[0].HoleCards = []cards.Card{{Rank: cards.Ace, Suit: cards.Hearts}, {Rank: cards.Ace, Suit: cards.Spades}}
	s.Seats[1].HoleCards = []cards.Card{{Rank: cards.King, Suit: cards.Hearts}, {Rank: cards.King, Suit: cards.Clubs}}
	s.Seats[2].HoleCards = []cards.Card{{Rank: cards.Two, Suit: cards.Hearts}, {Rank: cards.Three, Suit: cards.Hearts}}

	require.Nil(t, AssignBlinds(&s, time.Now()))
	posted, _ := PostBlinds(s)
	posted.ActiveSeat = nthSeatLeftOfButton(posted, 3, time.Now())

	now := time.Now()
	seatAllIn := posted.ActiveSeat
	next, _, rej := Apply(posted, Action{Seat: seatAllIn, Kind: ActionAllIn}, now)
	require.Nil(t, rej)

	for i := 0; i < 20 && isBettingPhase(next.Phase); i++ {
		active := next.ActiveSeat
		if next.Seats[active].Folded || next.Seats[active].AllIn {
			break
		}
		var act Action
		if next.CurrentBet > next.Seats[active].CurrentBet {
			act = Action{Seat: active, Kind: ActionCall}
		} else {
			act = Action{Seat: active, Kind: ActionCheck}
		}
		n, _, r := Apply(next, act, now)
		require.Nil(t, r)
		next = n
	}

	require.Equal(t, PhaseFinished, next.Phase)

	var total int64
	for _, p := range next.Seats {
		total += p.Stack
	}
	require.Equal(t, int64(200+1000+1000), total, "no chips may be created or destroyed across the hand")
}

// TestSameStreetReraiseLogsIncrementalDelta exercises a bet-then-raise
// sequence on one street and checks that the pot awarded at showdown equals
// what was actually put in, not an inflated or deflated figure derived from
// logging absolute target amounts instead of per-action deltas.
func TestSameStreetReraiseLogsIncrementalDelta(t *testing.T) {
	cfg := Config{MaxSeats: 2, SmallBlind: 50, BigBlind: 100, ActionTimeout: 30 * time.Second}
	s := State{
		TableID: "t1",
		Config:  cfg,
		Seats: map[int]*Player{
			0: basePlayer(0, 10000),
			1: basePlayer(1, 10000),
		},
		Button: 0,
		Phase:  PhasePreFlop,
		Community: []cards.Card{
			{Rank: cards.Two, Suit: cards.Clubs},
			{Rank: cards.Seven, Suit: cards.Diamonds},
			{Rank: cards.Nine, Suit: cards.Hearts},
			{Rank: cards.Jack, Suit: cards.Spades},
			{Rank: cards.Four, Suit: cards.Clubs},
		},
	}
	s.Seats[0].HoleCards = []cards.Card{{Rank: cards.Ace, Suit: cards.Hearts}, {Rank: cards.Ace, Suit: cards.Spades}}
	s.Seats[1].HoleCards = []cards.Card{{Rank: cards.King, Suit: cards.Hearts}, {Rank: cards.King, Suit: cards.Clubs}}

	require.Nil(t, AssignBlinds(&s, time.Now()))
	posted, _ := PostBlinds(s)
	posted.ActiveSeat = posted.SBSeat

	now := time.Now()

	// SB (seat 0) raises to 300 over the 100 big blind (delta 250, not 300).
	next, _, rej := Apply(posted, Action{Seat: posted.SBSeat, Kind: ActionRaise, Amount: 300}, now)
	require.Nil(t, rej)

	// BB calls the raise, then both check down every remaining street.
	for i := 0; i < 20 && isBettingPhase(next.Phase); i++ {
		active := next.ActiveSeat
		var act Action
		if next.CurrentBet > next.Seats[active].CurrentBet {
			act = Action{Seat: active, Kind: ActionCall}
		} else {
			act = Action{Seat: active, Kind: ActionCheck}
		}
		n, _, r := Apply(next, act, now)
		require.Nil(t, r)
		next = n
	}

	require.Equal(t, PhaseFinished, next.Phase)

	var total int64
	for _, p := range next.Seats {
		total += p.Stack
	}
	require.Equal(t, int64(20000), total, "no chips may be created or destroyed across the hand")

	// Seat 0 (AA) beats seat 1 (KK) with no pair on board, so the entire pot
	// of 600 (300 from each seat) goes to seat 0.
	require.Equal(t, int64(10000-300+600), next.Seats[0].Stack)
	require.Equal(t, int64(10000-300), next.Seats[1].Stack)
}
