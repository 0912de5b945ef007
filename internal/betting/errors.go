package betting

// RejectionCode is a stable, client-facing error code for a rejected
// action. Rejections are typed values, never panics or exceptions: a
// rejected action leaves the table state completely unchanged.
type RejectionCode string

const (
	CodeNotYourTurn         RejectionCode = "not_your_turn"
	CodeInvalidBetAmount    RejectionCode = "invalid_bet_amount"
	CodeInsufficientChips   RejectionCode = "insufficient_chips"
	CodeInvalidPhase        RejectionCode = "invalid_phase"
	CodeInsufficientPlayers RejectionCode = "insufficient_players"
)

// Rejection is a typed, non-mutating response to an illegal action.
type Rejection struct {
	Code    RejectionCode
	Message string
	Details map[string]any
}

func (r *Rejection) Error() string { return string(r.Code) + ": " + r.Message }

func reject(code RejectionCode, msg string, details map[string]any) *Rejection {
	return &Rejection{Code: code, Message: msg, Details: details}
}
