package betting

import (
	"sort"

	"github.com/vctt94/pokercore/internal/cards"
)

// totalContributions walks the action log to recover each seat's total
// chips committed this hand, which is what side-pot layering needs (as
// opposed to CurrentBet, which only reflects the current betting round).
func totalContributions(state State) map[int]int64 {
	totals := make(map[int]int64)
	for _, entry := range state.ActionLog {
		switch entry.Action {
		case ActionBet, ActionCall, ActionRaise, ActionAllIn:
			totals[entry.Seat] += entry.Amount
		}
	}
	return totals
}

// resolveShowdown evaluates every non-folded hand, builds side pots from
// total contributions, and distributes each pot (main pot first, then side
// pots in ascending order) to the best eligible hand, splitting ties with
// integer division and handing any remainder to the earliest eligible seat
// left of the button.
func resolveShowdown(state *State) []Event {
	folded := make(map[int]bool)
	contributions := totalContributions(*state)
	for seat, p := range state.Seats {
		folded[seat] = p.Folded
		if _, ok := contributions[seat]; !ok {
			contributions[seat] = 0
		}
	}

	pots := buildSidePots(contributions, folded)
	state.SidePots = pots
	state.MainPot = 0

	events := make([]Event, 0, len(pots)+1)

	type evalResult struct {
		value cards.HandValue
		err   error
	}
	evaluated := make(map[int]evalResult)
	for seat, p := range state.Seats {
		if p.Folded {
			continue
		}
		v, err := cards.Evaluate(p.HoleCards, state.Community)
		evaluated[seat] = evalResult{value: v, err: err}
	}

	var shares []WinnerShare
	for potIdx, pot := range pots {
		if pot.Amount == 0 {
			continue
		}
		var bestSeats []int
		var bestVal cards.HandValue
		first := true
		for _, seat := range pot.SeatOrder {
			res, ok := evaluated[seat]
			if !ok || res.err != nil {
				continue
			}
			if first {
				bestVal = res.value
				bestSeats = []int{seat}
				first = false
				continue
			}
			cmp := cards.Compare(res.value, bestVal)
			switch {
			case cmp > 0:
				bestVal = res.value
				bestSeats = []int{seat}
			case cmp == 0:
				bestSeats = append(bestSeats, seat)
			}
		}
		if len(bestSeats) == 0 {
			continue
		}

		sort.Ints(bestSeats)
		share := pot.Amount / int64(len(bestSeats))
		remainder := pot.Amount % int64(len(bestSeats))

		candidateSet := make(map[int]bool, len(bestSeats))
		for _, s := range bestSeats {
			candidateSet[s] = true
		}
		ordered := seatOrderFromButton(state.Button, state.Config.MaxSeats, candidateSet)

		for _, seat := range bestSeats {
			amt := share
			state.Seats[seat].Stack += amt
			shares = append(shares, WinnerShare{
				Seat:            seat,
				PotIndex:        potIdxOrMain(potIdx, len(pots)),
				Amount:          amt,
				HandClass:       evaluated[seat].value.Class.String(),
				HandDescription: cards.Describe(evaluated[seat].value),
			})
		}
		if remainder > 0 && len(ordered) > 0 {
			recipient := ordered[0]
			state.Seats[recipient].Stack += remainder
			for i := range shares {
				if shares[i].Seat == recipient && shares[i].PotIndex == potIdxOrMain(potIdx, len(pots)) {
					shares[i].Amount += remainder
					break
				}
			}
		}
	}

	events = append(events, Event{Kind: EventShowdown, Winners: shares})
	return events
}

func potIdxOrMain(idx, total int) int {
	if total == 1 {
		return -1
	}
	return idx
}

// resolveSinglePlayerLeft awards the entire pot to the one remaining
// non-folded player, without a showdown reveal.
func resolveSinglePlayerLeft(state *State) []Event {
	var winner int = -1
	for seat, p := range state.Seats {
		if !p.Folded {
			winner = seat
			break
		}
	}
	if winner == -1 {
		return nil
	}
	contributions := totalContributions(*state)
	var total int64
	for _, amt := range contributions {
		total += amt
	}
	state.Seats[winner].Stack += total
	state.MainPot = 0
	state.SidePots = nil
	return []Event{{
		Kind:    EventHandComplete,
		Winners: []WinnerShare{{Seat: winner, PotIndex: -1, Amount: total}},
	}}
}
