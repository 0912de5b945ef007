package betting

import "time"

// Apply is the betting engine's single entry point: a pure function from
// (table state, action) to either a new state plus emitted events, or a
// typed rejection that leaves the state completely unchanged.
func Apply(state State, action Action, now time.Time) (State, []Event, *Rejection) {
	if !isBettingPhase(state.Phase) {
		return state, nil, reject(CodeInvalidPhase, "no betting in progress", map[string]any{"phase": state.Phase})
	}
	if action.Seat != state.ActiveSeat {
		return state, nil, reject(CodeNotYourTurn, "it is not this seat's turn", map[string]any{"active_seat": state.ActiveSeat})
	}
	player, ok := state.Seats[action.Seat]
	if !ok {
		return state, nil, reject(CodeNotYourTurn, "seat is not occupied", nil)
	}
	if player.Folded || player.AllIn {
		return state, nil, reject(CodeNotYourTurn, "seat cannot act", nil)
	}

	next := state.Clone()
	p := next.Seats[action.Seat]

	var events []Event
	var logAmount int64

	switch action.Kind {
	case ActionFold:
		p.Folded = true
		p.HasActed = true
		events = append(events, Event{Kind: EventActionApplied, Seat: action.Seat, Phase: next.Phase, Detail: "fold"})

	case ActionCheck:
		if next.CurrentBet > p.CurrentBet {
			return state, nil, reject(CodeInvalidBetAmount, "cannot check facing a bet", map[string]any{"current_bet": next.CurrentBet, "player_bet": p.CurrentBet})
		}
		p.HasActed = true
		events = append(events, Event{Kind: EventActionApplied, Seat: action.Seat, Phase: next.Phase, Detail: "check"})

	case ActionCall:
		gap := next.CurrentBet - p.CurrentBet
		if gap <= 0 {
			return state, nil, reject(CodeInvalidBetAmount, "nothing to call", nil)
		}
		contributed := gap
		allIn := false
		if p.Stack <= gap {
			contributed = p.Stack
			allIn = true
		}
		p.Stack -= contributed
		p.CurrentBet += contributed
		p.HasActed = true
		if allIn {
			p.AllIn = true
		}
		next.MainPot += contributed
		logAmount = contributed
		events = append(events, Event{Kind: EventActionApplied, Seat: action.Seat, Amount: contributed, Phase: next.Phase, Detail: "call"})

	case ActionBet:
		if next.CurrentBet != 0 {
			return state, nil, reject(CodeInvalidBetAmount, "bet illegal when a bet is already outstanding", nil)
		}
		if action.Amount <= 0 {
			return state, nil, reject(CodeInvalidBetAmount, "bet amount must be positive", nil)
		}
		if action.Amount > p.Stack {
			return state, nil, reject(CodeInsufficientChips, "bet exceeds stack", map[string]any{"stack": p.Stack})
		}
		minBet := next.Config.BigBlind
		allIn := action.Amount == p.Stack
		if action.Amount < minBet && !allIn {
			return state, nil, reject(CodeInvalidBetAmount, "bet below minimum", map[string]any{"min_bet": minBet})
		}
		p.Stack -= action.Amount
		p.CurrentBet += action.Amount
		p.HasActed = true
		if allIn {
			p.AllIn = true
		}
		next.MainPot += action.Amount
		next.CurrentBet = p.CurrentBet
		next.MinRaise = action.Amount
		logAmount = action.Amount
		resetOthersHasActed(&next, action.Seat)
		events = append(events, Event{Kind: EventActionApplied, Seat: action.Seat, Amount: action.Amount, Phase: next.Phase, Detail: "bet"})

	case ActionRaise:
		if next.CurrentBet == 0 {
			return state, nil, reject(CodeInvalidBetAmount, "raise illegal with no outstanding bet, use bet", nil)
		}
		if action.Amount <= next.CurrentBet {
			return state, nil, reject(CodeInvalidBetAmount, "raise must exceed current bet", map[string]any{"current_bet": next.CurrentBet})
		}
		delta := action.Amount - p.CurrentBet
		if delta > p.Stack {
			return state, nil, reject(CodeInsufficientChips, "raise exceeds stack", map[string]any{"stack": p.Stack})
		}
		allIn := delta == p.Stack
		requiredTo := next.CurrentBet + next.MinRaise
		isFullRaise := action.Amount >= requiredTo
		if !isFullRaise && !allIn {
			return state, nil, reject(CodeInvalidBetAmount, "raise below minimum raise", map[string]any{"min_total": requiredTo})
		}
		p.Stack -= delta
		p.CurrentBet += delta
		p.HasActed = true
		if allIn {
			p.AllIn = true
		}
		next.MainPot += delta
		logAmount = delta
		raiseDelta := p.CurrentBet - next.CurrentBet
		next.CurrentBet = p.CurrentBet
		if isFullRaise {
			next.MinRaise = raiseDelta
			resetOthersHasActed(&next, action.Seat)
		}
		// a short all-in raise (isFullRaise false) does not reopen action:
		// other players who already matched the prior bet keep HasActed.
		events = append(events, Event{Kind: EventActionApplied, Seat: action.Seat, Amount: action.Amount, Phase: next.Phase, Detail: "raise"})

	case ActionAllIn:
		amt := p.Stack
		if amt <= 0 {
			return state, nil, reject(CodeInsufficientChips, "no chips to push all-in", nil)
		}
		p.Stack = 0
		p.CurrentBet += amt
		p.AllIn = true
		p.HasActed = true
		next.MainPot += amt
		logAmount = amt
		if p.CurrentBet > next.CurrentBet {
			raiseDelta := p.CurrentBet - next.CurrentBet
			isFullRaise := raiseDelta >= next.MinRaise
			next.CurrentBet = p.CurrentBet
			if isFullRaise {
				next.MinRaise = raiseDelta
				resetOthersHasActed(&next, action.Seat)
			}
		}
		events = append(events, Event{Kind: EventActionApplied, Seat: action.Seat, Amount: amt, Phase: next.Phase, Detail: "all_in"})

	default:
		return state, nil, reject(CodeInvalidBetAmount, "unknown action kind", map[string]any{"kind": action.Kind})
	}

	next.ActionLog = append(next.ActionLog, ActionLogEntry{
		Seat: action.Seat, Action: action.Kind, Amount: logAmount, Phase: next.Phase, Timestamp: now,
	})

	if remaining := nonFoldedSeats(next); len(remaining) == 1 {
		events = append(events, resolveSinglePlayerLeft(&next)...)
		next.Phase = PhaseFinished
		return next, events, nil
	}

	if roundClosed(next) {
		closeEvents, closedState := closeRound(next, now)
		events = append(events, closeEvents...)
		next = closedState
	} else {
		advanceActiveSeat(&next, now)
	}

	return next, events, nil
}

func isBettingPhase(p Phase) bool {
	switch p {
	case PhasePreFlop, PhaseFlop, PhaseTurn, PhaseRiver:
		return true
	default:
		return false
	}
}

func resetOthersHasActed(state *State, except int) {
	for seat, p := range state.Seats {
		if seat == except || p.Folded || p.AllIn {
			continue
		}
		p.HasActed = false
	}
}

func nonFoldedSeats(state State) []int {
	var out []int
	for seat, p := range state.Seats {
		if !p.Folded {
			out = append(out, seat)
		}
	}
	return out
}

// roundClosed reports whether every non-folded, non-all-in player has acted
// at least once and either matches the current bet or is all-in for less.
func roundClosed(state State) bool {
	for _, p := range state.Seats {
		if p.Folded || p.AllIn {
			continue
		}
		if !p.HasActed {
			return false
		}
		if p.CurrentBet != state.CurrentBet {
			return false
		}
	}
	return true
}

var phaseOrder = []Phase{PhasePreFlop, PhaseFlop, PhaseTurn, PhaseRiver, PhaseShowdown, PhaseFinished}

func nextPhase(p Phase) Phase {
	for i, ph := range phaseOrder {
		if ph == p && i+1 < len(phaseOrder) {
			return phaseOrder[i+1]
		}
	}
	return PhaseFinished
}

// closeRound advances the hand to the next phase: returns uncalled bets,
// resets per-round betting fields, and either resolves showdown or hands
// off to the table actor (via an EventPhaseAdvanced) to deal the next
// community cards.
func closeRound(state State, now time.Time) ([]Event, State) {
	var events []Event
	if ev := returnUncalledBet(&state); ev != nil {
		events = append(events, *ev)
	}

	prevPhase := state.Phase
	np := nextPhase(state.Phase)
	events = append(events, Event{Kind: EventRoundClosed, Phase: prevPhase})

	for _, p := range state.Seats {
		p.CurrentBet = 0
		if !p.Folded && !p.AllIn {
			p.HasActed = false
		}
	}
	state.CurrentBet = 0
	state.MinRaise = state.Config.BigBlind
	state.Phase = np

	events = append(events, Event{Kind: EventPhaseAdvanced, Phase: np})

	if np == PhaseShowdown {
		events = append(events, resolveShowdown(&state)...)
		state.Phase = PhaseFinished
		return events, state
	}

	// If every remaining non-folded player is all-in, no further betting
	// action is possible; the table actor should deal straight through to
	// showdown without prompting anyone to act.
	if allRemainingAllIn(state) {
		return events, state
	}

	advanceActiveSeat(&state, now)
	return events, state
}

func allRemainingAllIn(state State) bool {
	active := 0
	for _, p := range state.Seats {
		if p.Folded {
			continue
		}
		active++
		if !p.AllIn {
			return false
		}
	}
	return active > 0
}

// advanceActiveSeat sets ActiveSeat to the next active-and-connected,
// non-folded, non-all-in seat left of the button (or left of the current
// active seat for intra-round advancement — tracked via Button for the
// first-to-act seat each phase, callers fix this up on phase change in
// InitializeActiveSeat).
func advanceActiveSeat(state *State, now time.Time) {
	candidates := state.SeatsLeftOfButton(func(p Player) bool {
		return !p.Folded && !p.AllIn && p.IsActiveAndConnected(now)
	})
	if len(candidates) == 0 {
		return
	}
	for i, seat := range candidates {
		if seat == state.ActiveSeat {
			state.ActiveSeat = candidates[(i+1)%len(candidates)]
			return
		}
	}
	state.ActiveSeat = candidates[0]
}

// InitializeActiveSeat sets the first seat to act for a freshly dealt
// phase: under-the-gun (dealer+3) for a multiway pre-flop, the button (who
// posts the small blind) for a heads-up pre-flop, and for every post-flop
// phase the first seat left of the button that has neither folded nor gone
// all-in.
func InitializeActiveSeat(state *State, now time.Time) {
	candidates := state.ActiveAndConnectedSeats(now)
	if len(candidates) == 0 {
		return
	}
	if state.Phase == PhasePreFlop {
		n := 3
		if len(candidates) == 2 {
			n = 2
		}
		state.ActiveSeat = nthSeatLeftOfButton(*state, n, now)
		return
	}
	canAct := state.SeatsLeftOfButton(func(p Player) bool {
		return !p.Folded && !p.AllIn && p.IsActiveAndConnected(now)
	})
	if len(canAct) > 0 {
		state.ActiveSeat = canAct[0]
	}
}

func nthSeatLeftOfButton(state State, n int, now time.Time) int {
	candidates := state.ActiveAndConnectedSeats(now)
	if len(candidates) == 0 {
		return state.Button
	}
	if n-1 < len(candidates) {
		return candidates[n-1]
	}
	return candidates[(n-1)%len(candidates)]
}
