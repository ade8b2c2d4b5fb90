package sync

// Failure reason constants recorded on runs and surfaced in logs.
const (
	ReasonAccessDenied        = "access-denied"
	ReasonProviderUnavailable = "provider-unavailable"
	ReasonCloneFailed         = "clone-failed"
	ReasonRunTimeout          = "run-timeout"
	ReasonNoProgress          = "no-usable-progress"
)

// Error is a structured sync failure carrying the reason recorded on the run.
type Error struct {
	Err     error
	Message string
	Reason  string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(reason, message string, err error) *Error {
	return &Error{
		Err:     err,
		Message: message,
		Reason:  reason,
	}
}
