package planner

import "errors"

// UsageError reports a request that contradicts itself.  No collaborator
// has been called when one is returned.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string { return e.Msg }

func usage(msg string) error { return &UsageError{Msg: msg} }

// IsUsage reports whether err is, or wraps, a *UsageError.
func IsUsage(err error) bool {
	var ue *UsageError
	return errors.As(err, &ue)
}
