package betting

import "time"

// RandomIntFunc draws a uniform random integer in [min, max], satisfied by
// rng.RandomInt. The betting engine takes it as a parameter rather than
// importing the rng package directly, keeping it a pure function of its
// inputs plus an injected entropy source.
type RandomIntFunc func(min, max int) (int, error)

// NextButton computes the button seat for the next hand. On the very first
// hand (current button is unset, signaled by negative) it picks uniformly
// at random among active-and-connected seats; otherwise it moves clockwise
// to the next active-and-connected seat, reassigning away from the prior
// button holder if they are no longer eligible. Returns CodeInsufficientPlayers
// if fewer than two seats qualify.
func NextButton(state State, now time.Time, prevButton int, randomInt RandomIntFunc) (int, *Rejection) {
	candidates := state.ActiveAndConnectedSeats0(now)
	if len(candidates) < 2 {
		return 0, reject(CodeInsufficientPlayers, "fewer than two active and connected players", map[string]any{"count": len(candidates)})
	}

	if prevButton < 0 {
		idx, err := randomInt(0, len(candidates)-1)
		if err != nil {
			return 0, reject(CodeInsufficientPlayers, "failed to draw random button seat", nil)
		}
		return candidates[idx], nil
	}

	// Move clockwise starting from the seat immediately after the previous
	// button, landing on the first eligible seat encountered.
	for i := 1; i <= state.Config.MaxSeats; i++ {
		seat := (prevButton + i) % state.Config.MaxSeats
		for _, c := range candidates {
			if c == seat {
				return seat, nil
			}
		}
	}
	return candidates[0], nil
}

// ActiveAndConnectedSeats0 returns active-and-connected seats starting from
// seat 0 in ascending order (not relative to any button), used for button
// selection where "left of the button" isn't yet meaningful.
func (s State) ActiveAndConnectedSeats0(now time.Time) []int {
	var out []int
	for seat := 0; seat < s.Config.MaxSeats; seat++ {
		p, ok := s.Seats[seat]
		if !ok {
			continue
		}
		if p.IsActiveAndConnected(now) {
			out = append(out, seat)
		}
	}
	return out
}

// AssignBlinds sets SBSeat/BBSeat from the button: heads-up, the button is
// the small blind; otherwise SB/BB are the next two active-and-connected
// seats clockwise from the button.
func AssignBlinds(state *State, now time.Time) *Rejection {
	candidates := state.ActiveAndConnectedSeats(now)
	if len(candidates) < 2 {
		return reject(CodeInsufficientPlayers, "fewer than two active and connected players", nil)
	}
	if len(candidates) == 2 {
		state.SBSeat = state.Button
		// BB is the other seat.
		for _, c := range candidates {
			if c != state.Button {
				state.BBSeat = c
			}
		}
		return nil
	}
	state.SBSeat = candidates[0]
	state.BBSeat = candidates[1]
	return nil
}

// PostBlinds auto-posts the small and big blind at the start of a
// pre-flop betting round, handling short stacks as an all-in for less.
func PostBlinds(state State) (State, []Event) {
	next := state.Clone()
	var events []Event

	post := func(seat int, amount int64) {
		p, ok := next.Seats[seat]
		if !ok {
			return
		}
		contributed := amount
		if p.Stack < contributed {
			contributed = p.Stack
		}
		p.Stack -= contributed
		p.CurrentBet += contributed
		if p.Stack == 0 {
			p.AllIn = true
		}
		next.MainPot += contributed
		next.ActionLog = append(next.ActionLog, ActionLogEntry{Seat: seat, Action: ActionBet, Amount: contributed, Phase: PhasePreFlop})
		events = append(events, Event{Kind: EventBlindsPosted, Seat: seat, Amount: contributed})
	}

	post(next.SBSeat, next.Config.SmallBlind)
	post(next.BBSeat, next.Config.BigBlind)

	next.CurrentBet = next.Config.BigBlind
	next.MinRaise = next.Config.BigBlind
	return next, events
}
