package betting

import "sort"

// buildSidePots rebuilds the layered side pots from each seat's total
// contribution this hand (the per-seat totals that resolveShowdown recovers
// from the action log via totalContributions).
// Layers are built from unique contribution levels ascending; eligibility
// for a layer is "contributed at or above this level and not folded".
func buildSidePots(contributions map[int]int64, folded map[int]bool) []SidePot {
	levels := make(map[int64]bool)
	for _, amt := range contributions {
		if amt > 0 {
			levels[amt] = true
		}
	}
	sortedLevels := make([]int64, 0, len(levels))
	for lvl := range levels {
		sortedLevels = append(sortedLevels, lvl)
	}
	sort.Slice(sortedLevels, func(i, j int) bool { return sortedLevels[i] < sortedLevels[j] })

	seats := make([]int, 0, len(contributions))
	for seat := range contributions {
		seats = append(seats, seat)
	}
	sort.Ints(seats)

	var pots []SidePot
	var prev int64
	for _, lvl := range sortedLevels {
		layerSize := lvl - prev
		var amount int64
		eligible := make(map[int]bool)
		var order []int
		for _, seat := range seats {
			contributed := contributions[seat]
			if contributed <= prev {
				continue
			}
			take := layerSize
			if contributed-prev < layerSize {
				take = contributed - prev
			}
			amount += take
			if !folded[seat] {
				eligible[seat] = true
				order = append(order, seat)
			}
		}
		if amount > 0 {
			pots = append(pots, SidePot{Amount: amount, Eligible: eligible, SeatOrder: order})
		}
		prev = lvl
	}
	return pots
}

// returnUncalledBet finds the highest and second-highest total current bets
// this round; if the highest is strictly greater than the second highest,
// the excess is returned to the high bettor and their contribution is
// capped at the second-highest level.
func returnUncalledBet(state *State) *Event {
	var highSeat = -1
	var high, second int64
	for seat, p := range state.Seats {
		if p.Folded {
			continue
		}
		if p.CurrentBet > high {
			second = high
			high = p.CurrentBet
			highSeat = seat
		} else if p.CurrentBet > second {
			second = p.CurrentBet
		}
	}
	if highSeat == -1 || high <= second {
		return nil
	}
	excess := high - second
	p := state.Seats[highSeat]
	p.CurrentBet -= excess
	p.Stack += excess
	state.MainPot -= excess
	// Take the returned chips back out of the seat's logged contributions,
	// newest first, so totalContributions sees the capped amount.
	left := excess
	for i := len(state.ActionLog) - 1; i >= 0 && left > 0; i-- {
		e := &state.ActionLog[i]
		if e.Seat != highSeat || e.Amount <= 0 {
			continue
		}
		take := e.Amount
		if take > left {
			take = left
		}
		e.Amount -= take
		left -= take
	}
	return &Event{Kind: EventUncalledReturn, Seat: highSeat, Amount: excess}
}

// seatOrderFromButton returns seats in clockwise order starting immediately
// left of the button, restricted to the given candidate set, used to pick a
// deterministic remainder recipient ("earliest seat left of the button").
func seatOrderFromButton(button, maxSeats int, candidates map[int]bool) []int {
	var order []int
	for i := 1; i <= maxSeats; i++ {
		seat := (button + i) % maxSeats
		if candidates[seat] {
			order = append(order, seat)
		}
	}
	return order
}
