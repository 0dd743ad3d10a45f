package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// defaultPollInterval is the retry interval while waiting for the view layer
// to register an instance for a deferred enter callback.
const defaultPollInterval = 16 * time.Millisecond

// Controller drives navigation transitions: it resolves targets through a
// Matcher, runs the guard pipeline, and commits the current route. One
// controller tracks at most one pending transition; starting another
// supersedes it.
type Controller struct {
	matcher      *Matcher
	history      History
	logger       *slog.Logger
	metrics      *Metrics
	tracer       trace.Tracer
	pollInterval time.Duration

	mu            sync.Mutex
	current       *Route
	pending       *Route
	listener      func(*Route)
	beforeHooks   []*hookEntry
	resolveHooks  []*hookEntry
	afterHooks    []*afterEntry
	errorCbs      []func(error)
	ready         bool
	readyErr      error
	readyCbs      []func(*Route)
	readyErrorCbs []func(error)
}

type hookEntry struct{ guard Guard }

type afterEntry struct{ hook AfterHook }

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger for transition diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithMetrics attaches Prometheus instruments to the controller.
func WithMetrics(m *Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// WithTracer overrides the OpenTelemetry tracer. The default comes from the
// global tracer provider under the name "wayfind".
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Controller) {
		c.tracer = tracer
	}
}

// WithPollInterval overrides the deferred enter-callback retry interval.
func WithPollInterval(d time.Duration) Option {
	return func(c *Controller) {
		c.pollInterval = d
	}
}

// New creates a controller over a route table and a URL backend.
func New(table *Table, history History, opts ...Option) *Controller {
	c := &Controller{
		history:      history,
		logger:       slog.Default(),
		tracer:       otel.Tracer("wayfind"),
		pollInterval: defaultPollInterval,
		current:      Nowhere(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.matcher = NewMatcher(table, c.logger)
	c.metrics.setRouteCount(table.Len())
	return c
}

// CurrentRoute returns the committed route, Nowhere before the first commit.
func (c *Controller) CurrentRoute() *Route {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Match resolves a location against the table using the current route as
// context. Pure; no transition is started.
func (c *Controller) Match(loc Location) *Route {
	return c.matcher.Match(loc, c.CurrentRoute(), nil)
}

// Table returns the controller's route table.
func (c *Controller) Table() *Table { return c.matcher.Table() }

// AddRoutes registers additional declarations. The caller decides whether to
// re-resolve the current location afterwards.
func (c *Controller) AddRoutes(declarations []Declaration) {
	c.matcher.Table().AddRoutes(declarations)
	c.metrics.setRouteCount(c.matcher.Table().Len())
}

// Listen registers the route-changed listener that drives the view layer.
func (c *Controller) Listen(fn func(*Route)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listener = fn
}

// BeforeEach appends a global guard that runs before every transition. The
// returned function unregisters exactly that guard; calling it twice is a
// no-op.
func (c *Controller) BeforeEach(guard Guard) func() {
	return c.registerGuard(&c.beforeHooks, guard)
}

// BeforeResolve appends a global guard that runs after enter guards, just
// before the transition commits.
func (c *Controller) BeforeResolve(guard Guard) func() {
	return c.registerGuard(&c.resolveHooks, guard)
}

// AfterEach appends a hook observing every committed transition.
func (c *Controller) AfterEach(hook AfterHook) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry := &afterEntry{hook: hook}
	c.afterHooks = append(c.afterHooks, entry)
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, e := range c.afterHooks {
			if e == entry {
				c.afterHooks = append(c.afterHooks[:i], c.afterHooks[i+1:]...)
				return
			}
		}
	}
}

func (c *Controller) registerGuard(list *[]*hookEntry, guard Guard) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry := &hookEntry{guard: guard}
	*list = append(*list, entry)
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, e := range *list {
			if e == entry {
				*list = append((*list)[:i], (*list)[i+1:]...)
				return
			}
		}
	}
}

// OnReady queues cb for one-shot delivery when the first transition
// concludes, or invokes it synchronously if one already has. errorCb, when
// given, is used instead if the first transition concluded with an error.
func (c *Controller) OnReady(cb func(*Route), errorCb func(error)) {
	c.mu.Lock()
	if c.ready {
		err := c.readyErr
		route := c.current
		c.mu.Unlock()
		if err != nil {
			if errorCb != nil {
				errorCb(err)
			}
			return
		}
		if cb != nil {
			cb(route)
		}
		return
	}
	if cb != nil {
		c.readyCbs = append(c.readyCbs, cb)
	}
	if errorCb != nil {
		c.readyErrorCbs = append(c.readyErrorCbs, errorCb)
	}
	c.mu.Unlock()
}

// OnError appends a listener invoked for every uncaught, non-duplicate error
// surfaced during any transition.
func (c *Controller) OnError(cb func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errorCbs = append(c.errorCbs, cb)
}

// TransitionTo resolves the target location and runs the full transition
// pipeline. On commit, onComplete receives the new route; on any failure,
// onAbort receives the Failure. Both are optional.
func (c *Controller) TransitionTo(loc Location, onComplete func(*Route), onAbort func(error)) {
	current := c.CurrentRoute()
	target := c.matcher.Match(loc, current, nil)
	c.confirmTransition(target, loc.Replace, onComplete, onAbort)
}

func (c *Controller) confirmTransition(route *Route, replace bool, onComplete func(*Route), onAbort func(error)) {
	start := time.Now()
	current := c.CurrentRoute()

	_, span := c.tracer.Start(context.Background(), "wayfind.transition",
		trace.WithAttributes(
			attribute.String("wayfind.to", route.FullPath),
			attribute.String("wayfind.from", current.FullPath),
		))

	abort := func(cause error) {
		failure := newFailure(cause, current, route)
		if !isSilent(cause) {
			c.logger.Debug("transition failed", "to", route.FullPath, "error", cause)
			c.fanOutError(failure)
			span.SetStatus(codes.Error, cause.Error())
			span.RecordError(failure)
		}
		span.End()
		c.metrics.observeTransition(statusOf(cause), start)
		if onAbort != nil {
			onAbort(failure)
		}
	}

	// A navigation to the exact current location never runs a guard: resync
	// the URL and report a duplication.
	if isSameRoute(route, current) && len(route.Matched) == len(current.Matched) {
		c.ensureURL(current, true)
		abort(ErrDuplicated)
		return
	}

	updated, activated, deactivated := resolveChains(current.Matched, route.Matched)

	before := c.snapshotGuards(&c.beforeHooks)
	queue := make([]Guard, 0, len(deactivated)+len(before)+len(updated)+len(activated)+1)
	queue = append(queue, leaveGuards(deactivated)...)
	queue = append(queue, before...)
	queue = append(queue, updateGuards(updated)...)
	queue = append(queue, enterHooks(activated)...)
	queue = append(queue, resolveLazyViews(activated))

	c.mu.Lock()
	c.pending = route
	c.mu.Unlock()

	step := func(guard Guard, next func()) {
		if c.pendingRoute() != route {
			abort(ErrCancelled)
			return
		}
		c.invokeGuard(guard, route, current, func(d Decision) {
			switch d.kind {
			case decisionAbort:
				c.ensureURL(current, true)
				abort(d.err)
			case decisionRedirect:
				abort(ErrRedirected)
				target := d.target
				c.TransitionTo(target, nil, nil)
			default:
				next()
			}
		})
	}

	runQueue(queue, step, func() {
		var postEnter []func()
		enter := c.bindEnterGuards(activated, route, &postEnter)
		second := append(enter, c.snapshotGuards(&c.resolveHooks)...)

		runQueue(second, step, func() {
			c.mu.Lock()
			if c.pending != route {
				c.mu.Unlock()
				abort(ErrCancelled)
				return
			}
			c.pending = nil
			prev := c.current
			c.current = route
			listener := c.listener
			after := append([]*afterEntry(nil), c.afterHooks...)
			c.mu.Unlock()

			c.ensureURL(route, replace)
			if listener != nil {
				listener(route)
			}
			for _, e := range after {
				e.hook(route, prev)
			}

			span.SetStatus(codes.Ok, "")
			span.End()
			c.metrics.observeTransition(statusCompleted, start)
			c.logger.Debug("transition committed", "to", route.FullPath, "from", prev.FullPath)

			if onComplete != nil {
				onComplete(route)
			}
			c.flushReady(route, nil)

			// Deferred enter callbacks fire once the view layer has
			// registered instances for the new chain.
			for _, cb := range postEnter {
				cb()
			}
		})
	})
}

// invokeGuard runs one guard, converting a panic into an abort decision.
func (c *Controller) invokeGuard(guard Guard, to, from *Route, next func(Decision)) {
	defer func() {
		if r := recover(); r != nil {
			next(Abort(fmt.Errorf("guard panicked: %v", r)))
		}
	}()
	guard(to, from, next)
}

// bindEnterGuards wraps the EnterGuard of each activated view definition so a
// Defer decision is captured for post-commit delivery and converted into a
// plain proceed.
func (c *Controller) bindEnterGuards(activated []*Record, route *Route, post *[]func()) []Guard {
	var guards []Guard
	for _, record := range activated {
		components := record.componentSnapshot()
		for _, slot := range slotNames(components) {
			if g, ok := components[slot].(EnterGuard); ok {
				guards = append(guards, c.bindEnterGuard(g, record, slot, route, post))
			}
		}
	}
	return guards
}

func (c *Controller) bindEnterGuard(g EnterGuard, record *Record, slot string, route *Route, post *[]func()) Guard {
	return func(to, from *Route, next func(Decision)) {
		g.BeforeRouteEnter(to, from, func(d Decision) {
			if d.kind == decisionDefer {
				cb := d.callback
				*post = append(*post, func() {
					c.pollInstance(record, slot, route, cb)
				})
				next(Proceed())
				return
			}
			next(d)
		})
	}
}

// pollInstance retries until the view layer registers an instance for the
// slot, then delivers it to the deferred callback. The loop stops when the
// route is superseded.
func (c *Controller) pollInstance(record *Record, slot string, route *Route, cb func(view any)) {
	if cb == nil {
		return
	}
	if c.CurrentRoute() != route {
		return
	}
	if view, ok := record.Instance(slot); ok {
		cb(view)
		return
	}
	time.AfterFunc(c.pollInterval, func() {
		c.pollInstance(record, slot, route, cb)
	})
}

func (c *Controller) pendingRoute() *Route {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

func (c *Controller) snapshotGuards(list *[]*hookEntry) []Guard {
	c.mu.Lock()
	defer c.mu.Unlock()
	guards := make([]Guard, 0, len(*list))
	for _, e := range *list {
		guards = append(guards, e.guard)
	}
	return guards
}

func (c *Controller) ensureURL(route *Route, replace bool) {
	if c.history != nil {
		c.history.EnsureURL(route.FullPath, replace)
	}
}

// fanOutError delivers a failure to every registered error listener and, if
// no transition has concluded yet, to the one-shot ready-error callbacks.
func (c *Controller) fanOutError(failure *Failure) {
	c.mu.Lock()
	cbs := append([]func(error){}, c.errorCbs...)
	c.mu.Unlock()
	for _, cb := range cbs {
		cb(failure)
	}
	c.flushReady(nil, failure)
}

// flushReady concludes the one-shot ready callbacks the first time a
// transition finishes.
func (c *Controller) flushReady(route *Route, err error) {
	c.mu.Lock()
	if c.ready {
		c.mu.Unlock()
		return
	}
	c.ready = true
	c.readyErr = err
	cbs := c.readyCbs
	errCbs := c.readyErrorCbs
	c.readyCbs = nil
	c.readyErrorCbs = nil
	c.mu.Unlock()

	if err != nil {
		for _, cb := range errCbs {
			cb(err)
		}
		return
	}
	for _, cb := range cbs {
		cb(route)
	}
}

func statusOf(cause error) string {
	switch {
	case errors.Is(cause, ErrDuplicated):
		return statusDuplicated
	case errors.Is(cause, ErrCancelled):
		return statusCancelled
	case errors.Is(cause, ErrRedirected):
		return statusRedirected
	default:
		return statusAborted
	}
}
