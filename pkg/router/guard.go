package router

import "sort"

// Guard is one unit of the navigation pipeline. It receives the target and
// current routes and must eventually call next with exactly one Decision. The
// pipeline does not advance until it does; a guard that never calls next
// stalls navigation, by contract.
type Guard func(to, from *Route, next func(Decision))

// AfterHook observes a committed transition. It cannot affect it.
type AfterHook func(to, from *Route)

type decisionKind int

const (
	decisionProceed decisionKind = iota
	decisionAbort
	decisionRedirect
	decisionDefer
)

// Decision is a guard's verdict on a pending navigation.
type Decision struct {
	kind     decisionKind
	err      error
	target   Location
	callback func(view any)
}

// Proceed lets the pipeline advance to the next guard.
func Proceed() Decision {
	return Decision{kind: decisionProceed}
}

// Abort stops the transition. The URL snaps back to the previous route and
// the failure is delivered to onAbort and the error listeners. A nil err is
// reported as ErrAborted.
func Abort(err error) Decision {
	if err == nil {
		err = ErrAborted
	}
	return Decision{kind: decisionAbort, err: err}
}

// RedirectTo stops the current transition and immediately starts a new one
// for loc. Set loc.Replace to replace the URL entry instead of pushing.
func RedirectTo(loc Location) Decision {
	return Decision{kind: decisionRedirect, target: loc}
}

// Defer proceeds and schedules cb to run after the new route is committed and
// the view tree has settled, with the record's live view handle. Only
// meaningful from an EnterGuard; elsewhere it behaves like Proceed.
func Defer(cb func(view any)) Decision {
	return Decision{kind: decisionDefer, callback: cb}
}

// slotNames returns a record's view slots in stable order.
func slotNames(components map[string]any) []string {
	names := make([]string, 0, len(components))
	for name := range components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// leaveGuards collects BeforeRouteLeave guards from the live instances of
// deactivated records, leaf first: children must confirm leaving before their
// parents.
func leaveGuards(deactivated []*Record) []Guard {
	var guards []Guard
	for i := len(deactivated) - 1; i >= 0; i-- {
		for _, view := range deactivated[i].instanceSnapshot() {
			if g, ok := view.(LeaveGuard); ok {
				guards = append(guards, g.BeforeRouteLeave)
			}
		}
	}
	return guards
}

// updateGuards collects BeforeRouteUpdate guards from the live instances of
// records shared with the previous route, root first.
func updateGuards(updated []*Record) []Guard {
	var guards []Guard
	for _, record := range updated {
		for _, view := range record.instanceSnapshot() {
			if g, ok := view.(UpdateGuard); ok {
				guards = append(guards, g.BeforeRouteUpdate)
			}
		}
	}
	return guards
}

// enterHooks collects the per-record BeforeEnter callbacks of newly activated
// records, root first. Nil entries are preserved; the queue runner skips them.
func enterHooks(activated []*Record) []Guard {
	guards := make([]Guard, 0, len(activated))
	for _, record := range activated {
		guards = append(guards, record.BeforeEnter)
	}
	return guards
}
