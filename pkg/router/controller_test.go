package router

import (
	"errors"
	"testing"
	"time"
)

type fakeHistory struct {
	urls     []string
	replaces []bool
}

func (h *fakeHistory) Location() string {
	if len(h.urls) == 0 {
		return "/"
	}
	return h.urls[len(h.urls)-1]
}

func (h *fakeHistory) EnsureURL(fullPath string, replace bool) {
	h.urls = append(h.urls, fullPath)
	h.replaces = append(h.replaces, replace)
}

func newTestController(declarations []Declaration, opts ...Option) (*Controller, *fakeHistory) {
	hist := &fakeHistory{}
	c := New(NewTable(declarations), hist, opts...)
	return c, hist
}

var basicDecls = []Declaration{
	{Path: "/", Name: "home", Component: "Home"},
	{Path: "/a", Name: "a", Component: "A"},
	{Path: "/b", Name: "b", Component: "B"},
	{Path: "/users/:id", Name: "user", Component: "User"},
}

func TestTransitionCommit(t *testing.T) {
	c, hist := newTestController(basicDecls)

	var listened *Route
	c.Listen(func(r *Route) { listened = r })

	var afterTo, afterFrom *Route
	c.AfterEach(func(to, from *Route) { afterTo, afterFrom = to, from })

	completed := 0
	c.TransitionTo(Loc("/a"), func(r *Route) { completed++ }, func(err error) {
		t.Fatalf("unexpected abort: %v", err)
	})

	if completed != 1 {
		t.Fatalf("onComplete called %d times, want 1", completed)
	}
	if got := c.CurrentRoute(); got.Path != "/a" || got.Name != "a" {
		t.Errorf("CurrentRoute() = %+v, want /a", got)
	}
	if listened == nil || listened.Path != "/a" {
		t.Errorf("listener got %+v, want /a", listened)
	}
	if afterTo == nil || afterTo.Path != "/a" {
		t.Errorf("afterEach to = %+v, want /a", afterTo)
	}
	if afterFrom != Nowhere() {
		t.Errorf("afterEach from = %+v, want start sentinel", afterFrom)
	}
	if len(hist.urls) != 1 || hist.urls[0] != "/a" {
		t.Errorf("history urls = %v, want [/a]", hist.urls)
	}
}

func TestTransitionReplace(t *testing.T) {
	c, hist := newTestController(basicDecls)

	loc := Loc("/a")
	loc.Replace = true
	c.TransitionTo(loc, nil, nil)

	if len(hist.replaces) != 1 || !hist.replaces[0] {
		t.Errorf("replaces = %v, want [true]", hist.replaces)
	}
}

func TestTransitionDuplicate(t *testing.T) {
	c, hist := newTestController(basicDecls)
	c.TransitionTo(Loc("/a"), nil, nil)

	guardRuns := 0
	c.BeforeEach(func(to, from *Route, next func(Decision)) {
		guardRuns++
		next(Proceed())
	})
	errCalls := 0
	c.OnError(func(err error) { errCalls++ })

	var aborted error
	c.TransitionTo(Loc("/a"), func(*Route) {
		t.Fatal("duplicate navigation must not complete")
	}, func(err error) { aborted = err })

	if !errors.Is(aborted, ErrDuplicated) {
		t.Errorf("abort err = %v, want ErrDuplicated", aborted)
	}
	if guardRuns != 0 {
		t.Errorf("guards ran %d times for a duplicate, want 0", guardRuns)
	}
	if errCalls != 0 {
		t.Errorf("error listeners fired %d times for a duplicate, want 0", errCalls)
	}
	// The URL resyncs to the current route with a replace.
	last := len(hist.urls) - 1
	if hist.urls[last] != "/a" || !hist.replaces[last] {
		t.Errorf("history tail = %q replace=%v, want /a replace", hist.urls[last], hist.replaces[last])
	}
}

func TestGuardAbort(t *testing.T) {
	c, _ := newTestController(basicDecls)
	c.TransitionTo(Loc("/a"), nil, nil)

	denied := errors.New("denied")
	c.BeforeEach(func(to, from *Route, next func(Decision)) {
		next(Abort(denied))
	})

	listenerCalls := 0
	c.Listen(func(*Route) { listenerCalls++ })
	var seen []error
	c.OnError(func(err error) { seen = append(seen, err) })

	var aborted error
	c.TransitionTo(Loc("/b"), func(*Route) {
		t.Fatal("aborted navigation must not complete")
	}, func(err error) { aborted = err })

	if !errors.Is(aborted, denied) {
		t.Errorf("abort err = %v, want wrapped denied", aborted)
	}
	var failure *Failure
	if !errors.As(aborted, &failure) {
		t.Fatalf("abort err %T, want *Failure", aborted)
	}
	if failure.To == nil || failure.To.Path != "/b" {
		t.Errorf("failure.To = %+v, want /b", failure.To)
	}
	if c.CurrentRoute().Path != "/a" {
		t.Errorf("current = %q, want /a unchanged", c.CurrentRoute().Path)
	}
	if listenerCalls != 0 {
		t.Errorf("listener fired %d times on abort, want 0", listenerCalls)
	}
	if len(seen) != 1 || !errors.Is(seen[0], denied) {
		t.Errorf("error listeners saw %v, want one wrapped denied", seen)
	}
}

func TestGuardAbortNilIsErrAborted(t *testing.T) {
	c, _ := newTestController(basicDecls)
	c.BeforeEach(func(to, from *Route, next func(Decision)) {
		next(Abort(nil))
	})

	var aborted error
	c.TransitionTo(Loc("/a"), nil, func(err error) { aborted = err })
	if !errors.Is(aborted, ErrAborted) {
		t.Errorf("abort err = %v, want ErrAborted", aborted)
	}
}

func TestGuardRedirect(t *testing.T) {
	c, _ := newTestController(basicDecls)

	c.BeforeEach(func(to, from *Route, next func(Decision)) {
		if to.Path == "/a" {
			next(RedirectTo(Loc("/b")))
			return
		}
		next(Proceed())
	})

	errorCalls := 0
	c.OnError(func(error) { errorCalls++ })

	var aborted error
	c.TransitionTo(Loc("/a"), func(*Route) {
		t.Fatal("redirected navigation must not complete itself")
	}, func(err error) { aborted = err })

	if !errors.Is(aborted, ErrRedirected) {
		t.Errorf("abort err = %v, want ErrRedirected", aborted)
	}
	if c.CurrentRoute().Path != "/b" {
		t.Errorf("current = %q, want follow-up landed on /b", c.CurrentRoute().Path)
	}
	if errorCalls != 0 {
		t.Errorf("error listeners fired %d times for a redirect, want 0", errorCalls)
	}
}

func TestGuardPanicAborts(t *testing.T) {
	c, _ := newTestController(basicDecls)
	c.BeforeEach(func(to, from *Route, next func(Decision)) {
		panic("kaboom")
	})

	var aborted error
	c.TransitionTo(Loc("/a"), func(*Route) {
		t.Fatal("must not complete")
	}, func(err error) { aborted = err })

	if aborted == nil {
		t.Fatal("expected an abort")
	}
	if c.CurrentRoute() != Nowhere() {
		t.Errorf("current moved despite panic: %+v", c.CurrentRoute())
	}
}

func TestBeforeEachUnregister(t *testing.T) {
	c, _ := newTestController(basicDecls)

	runs := 0
	off := c.BeforeEach(func(to, from *Route, next func(Decision)) {
		runs++
		next(Proceed())
	})

	c.TransitionTo(Loc("/a"), nil, nil)
	off()
	off() // second call is a no-op
	c.TransitionTo(Loc("/b"), nil, nil)

	if runs != 1 {
		t.Errorf("guard ran %d times, want 1", runs)
	}
}

type orderView struct {
	name  string
	order *[]string
}

func (v *orderView) BeforeRouteLeave(to, from *Route, next func(Decision)) {
	*v.order = append(*v.order, v.name+":leave")
	next(Proceed())
}

func (v *orderView) BeforeRouteUpdate(to, from *Route, next func(Decision)) {
	*v.order = append(*v.order, v.name+":update")
	next(Proceed())
}

func TestGuardPhaseOrder(t *testing.T) {
	var order []string
	decls := []Declaration{
		{Path: "/shared", Component: "Shared", Children: []Declaration{
			{Path: "old", Component: "Old"},
			{Path: "new", Component: "New", BeforeEnter: func(to, from *Route, next func(Decision)) {
				order = append(order, "beforeEnter")
				next(Proceed())
			}},
		}},
	}
	c, _ := newTestController(decls)
	c.TransitionTo(Loc("/shared/old"), nil, nil)

	shared := c.Table().RecordByPath("/shared")
	old := c.Table().RecordByPath("/shared/old")
	shared.SetInstance("default", &orderView{name: "shared", order: &order})
	old.SetInstance("default", &orderView{name: "old", order: &order})

	c.BeforeEach(func(to, from *Route, next func(Decision)) {
		order = append(order, "beforeEach")
		next(Proceed())
	})
	c.BeforeResolve(func(to, from *Route, next func(Decision)) {
		order = append(order, "beforeResolve")
		next(Proceed())
	})
	c.AfterEach(func(to, from *Route) {
		order = append(order, "afterEach")
	})

	c.TransitionTo(Loc("/shared/new"), nil, nil)

	want := []string{"old:leave", "beforeEach", "shared:update", "beforeEnter", "beforeResolve", "afterEach"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestLeaveGuardsLeafFirst(t *testing.T) {
	var order []string
	decls := []Declaration{
		{Path: "/a", Component: "A", Children: []Declaration{
			{Path: "b", Component: "B"},
		}},
		{Path: "/other", Component: "Other"},
	}
	c, _ := newTestController(decls)
	c.TransitionTo(Loc("/a/b"), nil, nil)

	c.Table().RecordByPath("/a").SetInstance("default", &orderView{name: "parent", order: &order})
	c.Table().RecordByPath("/a/b").SetInstance("default", &orderView{name: "child", order: &order})

	c.TransitionTo(Loc("/other"), nil, nil)

	if len(order) != 2 || order[0] != "child:leave" || order[1] != "parent:leave" {
		t.Errorf("order = %v, want child before parent", order)
	}
}

func TestSupersession(t *testing.T) {
	c, _ := newTestController(basicDecls)

	var stalled func(Decision)
	c.BeforeEach(func(to, from *Route, next func(Decision)) {
		if to.Path == "/a" {
			stalled = next
			return
		}
		next(Proceed())
	})

	errorCalls := 0
	c.OnError(func(error) { errorCalls++ })

	var firstAbort error
	firstDone := false
	c.TransitionTo(Loc("/a"), func(*Route) { firstDone = true }, func(err error) { firstAbort = err })

	// Second navigation supersedes the stalled one.
	c.TransitionTo(Loc("/b"), nil, nil)
	if c.CurrentRoute().Path != "/b" {
		t.Fatalf("current = %q, want /b", c.CurrentRoute().Path)
	}

	// The stalled guard finally answers; its transition must cancel, not
	// commit.
	stalled(Proceed())

	if firstDone {
		t.Error("superseded navigation committed")
	}
	if !errors.Is(firstAbort, ErrCancelled) {
		t.Errorf("first abort = %v, want ErrCancelled", firstAbort)
	}
	if errorCalls != 0 {
		t.Errorf("error listeners fired %d times for a cancellation, want 0", errorCalls)
	}
	if c.CurrentRoute().Path != "/b" {
		t.Errorf("current = %q, want /b intact", c.CurrentRoute().Path)
	}
}

func TestOnReady(t *testing.T) {
	c, _ := newTestController(basicDecls)

	var early *Route
	c.OnReady(func(r *Route) { early = r }, nil)

	c.TransitionTo(Loc("/a"), nil, nil)
	if early == nil || early.Path != "/a" {
		t.Errorf("queued ready cb got %+v, want /a", early)
	}

	// Registration after the first conclusion fires synchronously.
	var late *Route
	c.OnReady(func(r *Route) { late = r }, nil)
	if late == nil || late.Path != "/a" {
		t.Errorf("late ready cb got %+v, want /a", late)
	}

	// Further transitions do not re-fire ready callbacks.
	fires := 0
	c.OnReady(func(*Route) { fires++ }, nil)
	c.TransitionTo(Loc("/b"), nil, nil)
	if fires != 1 {
		t.Errorf("ready cb fired %d times, want 1", fires)
	}
}

func TestOnReadyError(t *testing.T) {
	c, _ := newTestController(basicDecls)
	c.BeforeEach(func(to, from *Route, next func(Decision)) {
		next(Abort(errors.New("nope")))
	})

	var readyErr error
	c.OnReady(func(*Route) {
		t.Fatal("success cb must not fire on a failed first transition")
	}, func(err error) { readyErr = err })

	c.TransitionTo(Loc("/a"), nil, nil)
	if readyErr == nil {
		t.Fatal("error cb did not fire")
	}

	// Late registration delivers the recorded error synchronously.
	var lateErr error
	c.OnReady(nil, func(err error) { lateErr = err })
	if lateErr == nil {
		t.Error("late error cb did not fire")
	}
}

func TestOnReadyNotFlushedBySilentFailure(t *testing.T) {
	c, _ := newTestController(basicDecls)

	var flushed bool
	c.OnReady(func(*Route) { flushed = true }, func(error) { flushed = true })

	// Stall both navigations, then cancel the first by resolving it after the
	// second started.
	var stalls []func(Decision)
	c.BeforeEach(func(to, from *Route, next func(Decision)) {
		stalls = append(stalls, next)
	})
	c.TransitionTo(Loc("/a"), nil, nil)
	c.TransitionTo(Loc("/b"), nil, nil)

	stalls[0](Proceed()) // first transition cancels silently

	if flushed {
		t.Fatal("silent cancellation flushed the ready callbacks")
	}

	stalls[1](Proceed()) // second transition commits
	if !flushed {
		t.Error("commit did not flush the ready callbacks")
	}
	if c.CurrentRoute().Path != "/b" {
		t.Errorf("current = %q, want /b", c.CurrentRoute().Path)
	}
}

type enterDeferView struct {
	deliver func(view any)
}

func (v *enterDeferView) BeforeRouteEnter(to, from *Route, next func(Decision)) {
	next(Defer(v.deliver))
}

func TestEnterGuardDeferredCallback(t *testing.T) {
	var got any
	view := &enterDeferView{deliver: func(v any) { got = v }}
	decls := []Declaration{
		{Path: "/x", Component: view},
	}
	c, _ := newTestController(decls, WithPollInterval(time.Millisecond))

	record := c.Table().RecordByPath("/x")
	c.Listen(func(*Route) {
		record.SetInstance("default", "live-instance")
	})

	c.TransitionTo(Loc("/x"), nil, nil)

	// The instance was registered during commit, so delivery is immediate.
	if got != "live-instance" {
		t.Errorf("deferred cb got %v, want live-instance", got)
	}
}

func TestEnterGuardDeferredPollsForInstance(t *testing.T) {
	delivered := make(chan any, 1)
	view := &enterDeferView{deliver: func(v any) { delivered <- v }}
	decls := []Declaration{
		{Path: "/x", Component: view},
	}
	c, _ := newTestController(decls, WithPollInterval(time.Millisecond))

	c.TransitionTo(Loc("/x"), nil, nil)

	select {
	case v := <-delivered:
		t.Fatalf("delivered %v before an instance existed", v)
	case <-time.After(5 * time.Millisecond):
	}

	c.Table().RecordByPath("/x").SetInstance("default", "late-instance")
	select {
	case v := <-delivered:
		if v != "late-instance" {
			t.Errorf("deferred cb got %v, want late-instance", v)
		}
	case <-time.After(time.Second):
		t.Fatal("deferred callback never delivered")
	}
}

func TestAddRoutesOnController(t *testing.T) {
	c, _ := newTestController(basicDecls)
	c.AddRoutes([]Declaration{{Path: "/late", Name: "late", Component: "Late"}})

	route := c.Match(Loc("/late"))
	if len(route.Matched) != 1 || route.Name != "late" {
		t.Errorf("added route not matchable: %+v", route)
	}
}
