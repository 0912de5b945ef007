package table

import "fmt"

// Severity classifies how a table actor error propagates, per the module's
// error handling design: validation errors go back to the caller only,
// transient errors retry with backoff, game-rule errors become a state
// event for everyone at the table, and fatal errors halt the actor.
type Severity string

const (
	SeverityValidation Severity = "validation"
	SeverityTransient  Severity = "transient"
	SeverityGameRule   Severity = "game_rule"
	SeverityFatal      Severity = "fatal"
)

// ActorError is the closed sum of error kinds a table actor can produce.
type ActorError struct {
	Severity Severity
	Code     string
	Message  string
	Cause    error
}

func (e *ActorError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s(%s): %s: %v", e.Severity, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s(%s): %s", e.Severity, e.Code, e.Message)
}

func (e *ActorError) Unwrap() error { return e.Cause }

func transientError(code, msg string, cause error) *ActorError {
	return &ActorError{Severity: SeverityTransient, Code: code, Message: msg, Cause: cause}
}

func gameRuleError(code, msg string) *ActorError {
	return &ActorError{Severity: SeverityGameRule, Code: code, Message: msg}
}

func fatalError(code, msg string, cause error) *ActorError {
	return &ActorError{Severity: SeverityFatal, Code: code, Message: msg, Cause: cause}
}
