package router

import (
	"errors"
	"fmt"
)

// Sentinel causes for navigation failures.
var (
	// ErrAborted marks a transition a guard stopped without giving a reason.
	ErrAborted = errors.New("navigation aborted")

	// ErrCancelled marks a transition superseded by a newer one.
	ErrCancelled = errors.New("navigation cancelled")

	// ErrDuplicated marks a navigation to the exact current location.
	ErrDuplicated = errors.New("navigation duplicated")

	// ErrRedirected marks a transition a guard diverted to a new location.
	ErrRedirected = errors.New("navigation redirected")

	// ErrRedirectCycle marks a match that exceeded the redirect hop limit.
	ErrRedirectCycle = errors.New("redirect cycle detected")
)

// Failure is the error delivered to onAbort and error listeners when a
// transition does not commit. Unwrap exposes the sentinel cause, so callers
// can test with errors.Is(err, router.ErrDuplicated) and friends.
type Failure struct {
	// Cause is one of the sentinel errors above, or for a guard that aborted
	// with its own error, that error.
	Cause error

	// From and To are the routes involved in the failed transition.
	From *Route
	To   *Route
}

func (f *Failure) Error() string {
	to := "?"
	if f.To != nil {
		to = f.To.FullPath
	}
	return fmt.Sprintf("navigation to %q failed: %v", to, f.Cause)
}

func (f *Failure) Unwrap() error { return f.Cause }

func newFailure(cause error, from, to *Route) *Failure {
	return &Failure{Cause: cause, From: from, To: to}
}

// isSilent reports whether a failure must skip the registered error
// listeners: duplicated navigations are reported via onAbort only, and a
// superseded run stops without side effects.
func isSilent(err error) bool {
	return errors.Is(err, ErrDuplicated) ||
		errors.Is(err, ErrCancelled) ||
		errors.Is(err, ErrRedirected)
}
