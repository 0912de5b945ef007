package table

import (
	"github.com/vctt94/pokercore/internal/betting"
)

// handleSupervisor applies a fire-and-forget instruction from the
// tournament coordinator. There is no reply channel: a move that can't be
// satisfied (e.g. the destination seat filled in the meantime) is simply
// dropped. Nothing reports the dropped move to the coordinator, which keeps
// the player recorded at the destination table.
func (a *Actor) handleSupervisor(msg *SupervisorMessage) {
	switch msg.Kind {
	case SupervisorMovePlayerHere:
		a.handleMovePlayerHere(msg)
	case SupervisorRemovePlayer:
		a.handleRemovePlayer(msg)
	case SupervisorCloseTable:
		a.handleCloseTable(msg)
	case SupervisorPause:
		a.paused = true
	case SupervisorResume:
		a.paused = false
		a.maybeScheduleHandStart()
	case SupervisorLevelChange:
		if msg.SmallBlind > 0 {
			a.state.Config.SmallBlind = msg.SmallBlind
		}
		if msg.BigBlind > 0 {
			a.state.Config.BigBlind = msg.BigBlind
		}
		for _, sub := range a.subs {
			sub.Send(OutboundMessage{Type: "level_change"})
		}
	case SupervisorStart:
		a.maybeScheduleHandStart()
	}
}

func (a *Actor) handleMovePlayerHere(msg *SupervisorMessage) {
	if _, exists := a.state.Seats[msg.Seat]; exists {
		return
	}
	if msg.Seat < 0 || msg.Seat >= a.state.Config.MaxSeats {
		return
	}
	a.state.Seats[msg.Seat] = &betting.Player{
		PlayerID: msg.PlayerID,
		Seat:     msg.Seat,
		Stack:    msg.Chips,
		Status:   betting.StatusActive,
	}
	a.appendAudit("move_player_here", map[string]string{"player_id": msg.PlayerID})
	a.broadcastState()
	a.maybeScheduleHandStart()
}

func (a *Actor) handleRemovePlayer(msg *SupervisorMessage) {
	for seat, p := range a.state.Seats {
		if p.PlayerID == msg.PlayerID {
			if a.handActive && !p.Folded && !p.AllIn {
				// In-hand players keep their seat through the end of the
				// hand; the coordinator's move is retried once the hand
				// finishes and the actor schedules the next hand start.
				p.Status = betting.StatusSittingOut
				return
			}
			delete(a.state.Seats, seat)
			a.appendAudit("remove_player", map[string]string{"player_id": msg.PlayerID})
			a.broadcastState()
			return
		}
	}
}

func (a *Actor) handleCloseTable(msg *SupervisorMessage) {
	a.closed = true
	a.cancelActionTimer()
	if a.handStartTimer != nil {
		a.handStartTimer.Stop()
	}
	for _, sub := range a.subs {
		sub.Send(OutboundMessage{Type: "table_closed", ErrorMessage: msg.Reason})
	}
}
