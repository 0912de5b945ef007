package table

import (
	"fmt"
	"time"

	"github.com/vctt94/pokercore/internal/betting"
	"github.com/vctt94/pokercore/internal/rng"
)

// scheduleActionTimer arms the time-bank timer for whichever seat is
// currently active. The timer only ever sends a tick into the inbox; it
// never mutates actor state directly.
func (a *Actor) scheduleActionTimer() {
	a.cancelActionTimer()
	a.actionGen++
	gen := a.actionGen
	seat := a.state.ActiveSeat
	d := a.state.Config.ActionTimeout
	a.actionTimer = time.AfterFunc(d, func() {
		a.inbox <- inboxMessage{tick: &tick{reason: "action_timeout", seat: seat, gen: gen, fired: time.Now()}}
	})
}

func (a *Actor) cancelActionTimer() {
	if a.actionTimer != nil {
		a.actionTimer.Stop()
		a.actionTimer = nil
	}
	a.actionGen++
}

func (a *Actor) maybeScheduleHandStart() {
	if a.handActive || a.paused || a.closed {
		return
	}
	if len(a.state.ActiveAndConnectedSeats(time.Now())) < 2 {
		return
	}
	if a.state.Phase != betting.PhaseWaiting {
		return
	}
	a.scheduleHandStartAfterDelay(0)
}

func (a *Actor) scheduleHandStartAfterDelay(d time.Duration) {
	if a.handStartTimer != nil {
		a.handStartTimer.Stop()
	}
	a.handStartTimer = time.AfterFunc(d, func() {
		a.inbox <- inboxMessage{tick: &tick{reason: "hand_start", fired: time.Now()}}
	})
}

func (a *Actor) handleTick(tk *tick) {
	switch tk.reason {
	case "hand_start":
		a.startHand()
	case "action_timeout":
		a.handleActionTimeout(tk)
	}
}

func (a *Actor) handleActionTimeout(tk *tick) {
	if tk.gen != a.actionGen {
		return // superseded by a later action or another timer reschedule
	}
	if !a.handActive || a.state.ActiveSeat != tk.seat {
		return
	}
	seat := tk.seat
	kind := betting.ActionCheck
	if a.state.CurrentBet > a.state.Seats[seat].CurrentBet {
		kind = betting.ActionFold
	}

	next, events, rej := betting.Apply(a.state, betting.Action{Seat: seat, Kind: kind}, time.Now())
	if rej != nil {
		a.log.Warnf("table %s: synthesized %s for seat %d rejected: %v", a.tableID, kind, seat, rej)
		return
	}
	a.appendAudit("action_timeout", map[string]string{"seat": fmt.Sprint(seat), "synthesized": string(kind)})
	a.state = next
	a.broadcastState()
	a.afterApply(events)
}

// startHand requires at least two active-and-connected seated players and a
// successful deck commitment; on failure the hand simply doesn't start. A
// failed commitment or hole-card deal is retried after a fixed 2s delay;
// any other failure waits for the next hand-start schedule.
func (a *Actor) startHand() {
	if a.handActive || a.closed || a.paused {
		return
	}
	candidates := a.state.ActiveAndConnectedSeats0(time.Now())
	if len(candidates) < 2 {
		return
	}

	button, rej := betting.NextButton(a.state, time.Now(), a.prevButton, rng.RandomInt)
	if rej != nil {
		a.log.Warnf("table %s: cannot start hand: %v", a.tableID, rej)
		return
	}
	a.state.Button = button
	a.prevButton = button
	if rej := betting.AssignBlinds(&a.state, time.Now()); rej != nil {
		a.log.Warnf("table %s: cannot assign blinds: %v", a.tableID, rej)
		return
	}

	a.state.HandNumber++
	handID := newHandID()

	for _, p := range a.state.Seats {
		p.Folded = false
		p.AllIn = false
		p.HasActed = false
		p.CurrentBet = 0
		p.HoleCards = nil
	}
	a.state.Community = nil
	a.state.SidePots = nil
	a.state.MainPot = 0
	a.state.ActionLog = nil

	a.rngCore.RefreshEntropy(a.tableID)
	commitment, err := a.deckMgr.StartHand(a.tableID, handID)
	if err != nil {
		a.log.Warnf("table %s: hand_start_failed: %v", a.tableID, err)
		a.scheduleHandStartAfterDelay(2 * time.Second)
		return
	}

	seatsLeft := a.state.SeatsLeftOfButton(func(p betting.Player) bool { return p.IsActiveAndConnected(time.Now()) })
	hands, err := a.deckMgr.DealHoleCards(seatsLeft)
	if err != nil {
		a.log.Warnf("table %s: hand_start_failed dealing hole cards: %v", a.tableID, err)
		a.scheduleHandStartAfterDelay(2 * time.Second)
		return
	}
	for seat, cs := range hands {
		a.state.Seats[seat].HoleCards = cs
	}

	a.state.Phase = betting.PhasePreFlop
	posted, events := betting.PostBlinds(a.state)
	a.state = posted
	betting.InitializeActiveSeat(&a.state, time.Now())

	a.handActive = true
	a.appendAudit("hand_started", map[string]string{"hand_id": handID, "button": fmt.Sprint(button)})

	for _, sub := range a.subs {
		sub.Send(OutboundMessage{Type: "hand_started", HandStarted: &HandStartedPayload{
			HandNumber:     a.state.HandNumber,
			Button:         button,
			SmallBlind:     a.state.Config.SmallBlind,
			BigBlind:       a.state.Config.BigBlind,
			CommitmentHash: fmt.Sprintf("%x", commitment.Hash),
		}})
	}
	_ = events
	a.broadcastState()
	a.scheduleActionTimer()
}
