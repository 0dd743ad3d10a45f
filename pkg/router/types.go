package router

import (
	"net/url"
	"sync"

	"github.com/vango-dev/wayfind/pkg/routepath"
)

// Meta is an opaque key-value bag attached to a declaration and surfaced on
// every Route whose chain ends at that record.
type Meta map[string]any

// Declaration describes one route as authored by the application. A tree of
// declarations is compiled by NewTable into flat lookup structures.
type Declaration struct {
	// Path is the route path, absolute ("/users") or relative to the parent
	// declaration ("settings").
	Path string

	// Name optionally registers the route for navigation by name.
	Name string

	// Component is the view definition for the "default" slot. Either a
	// concrete value handed to the view layer as-is, or a ViewFactory that
	// produces one asynchronously.
	Component any

	// Components maps slot names to view definitions. Takes precedence over
	// Component when set.
	Components map[string]any

	// Redirect diverts matches to another location. A string path, a
	// Location, or a RedirectFunc computed from the would-be route.
	Redirect any

	// Alias registers additional paths that resolve to this route's views.
	Alias []string

	// Children are nested declarations; their paths extend this one.
	Children []Declaration

	// BeforeEnter runs for this record when it is newly activated.
	BeforeEnter Guard

	Meta  Meta
	Props map[string]any

	// CaseSensitive makes static segments match case-exactly.
	CaseSensitive bool

	// Strict keeps trailing slashes significant.
	Strict bool
}

// RedirectFunc computes a redirect target from the route that would have been
// produced. It returns a path string or a Location.
type RedirectFunc func(to *Route) any

// Record is the compiled, immutable form of one declaration. Records are
// created during table build and never destroyed; only Instances and the
// resolved view cache inside Components are written afterwards, by the view
// layer and the lazy resolver respectively.
type Record struct {
	// Path is the fully qualified, normalized path.
	Path string

	// Name is the declared route name, if any.
	Name string

	// Components maps slot names to view definitions. The lazy resolver
	// replaces factory entries with their resolved definitions in place.
	Components map[string]any

	// Parent is the enclosing record, nil at the root. Upward link only;
	// records do not own their children.
	Parent *Record

	// MatchAs is the target path when this record is an alias. Matching the
	// alias re-resolves against MatchAs so the original's views are used.
	MatchAs string

	// Redirect, BeforeEnter, Meta, and Props carry over from the declaration.
	Redirect    any
	BeforeEnter Guard
	Meta        Meta
	Props       map[string]any

	pattern *routepath.Pattern

	// compMu guards Components after the build. The lazy resolver writes
	// resolved views from whatever goroutine a factory settles on, while a
	// newer transition may be scanning the slots.
	compMu sync.RWMutex

	// instances maps slot names to live view handles, written by the view
	// layer as views mount and unmount. Guarded because deferred enter
	// callbacks poll it from a timer.
	instMu    sync.RWMutex
	instances map[string]any
}

// SetInstance registers a live view handle for a slot. The view layer calls
// this when a view mounts. A nil view clears the slot.
func (r *Record) SetInstance(slot string, view any) {
	r.instMu.Lock()
	defer r.instMu.Unlock()
	if view == nil {
		delete(r.instances, slot)
		return
	}
	if r.instances == nil {
		r.instances = make(map[string]any)
	}
	r.instances[slot] = view
}

// componentSnapshot copies the slot-to-definition map for safe iteration while
// factories may be writing resolved views back.
func (r *Record) componentSnapshot() map[string]any {
	r.compMu.RLock()
	defer r.compMu.RUnlock()
	if r.Components == nil {
		return nil
	}
	out := make(map[string]any, len(r.Components))
	for slot, def := range r.Components {
		out[slot] = def
	}
	return out
}

// setComponent caches a resolved view definition for a slot.
func (r *Record) setComponent(slot string, def any) {
	r.compMu.Lock()
	defer r.compMu.Unlock()
	r.Components[slot] = def
}

// Instance returns the live view handle for a slot, if one is registered.
func (r *Record) Instance(slot string) (any, bool) {
	r.instMu.RLock()
	defer r.instMu.RUnlock()
	view, ok := r.instances[slot]
	return view, ok
}

// instanceSnapshot copies the live handles in stable slot order.
func (r *Record) instanceSnapshot() []any {
	r.instMu.RLock()
	defer r.instMu.RUnlock()
	views := make([]any, 0, len(r.instances))
	for _, slot := range slotNames(r.instances) {
		views = append(views, r.instances[slot])
	}
	return views
}

// Location is a normalized navigation target. Exactly one of Path or Name
// drives matching; Params, Query, and Hash refine it.
type Location struct {
	Path   string
	Name   string
	Params map[string]string
	Query  url.Values
	Hash   string

	// Replace requests replace semantics on the URL backend instead of push.
	Replace bool

	// Append resolves a relative Path below the current route's path instead
	// of next to it.
	Append bool

	normalized bool
}

// Loc parses a raw location string ("/users/7?tab=posts#bio") into a Location.
func Loc(raw string) Location {
	path, query, hash := routepath.Parse(raw)
	loc := Location{Path: path, Hash: hash}
	if query != "" {
		if q, err := url.ParseQuery(query); err == nil {
			loc.Query = q
		}
	}
	return loc
}

// Route is the immutable result of a match. A failed match yields a Route
// with an empty Matched chain.
type Route struct {
	Name     string
	Path     string
	Hash     string
	Params   map[string]string
	Query    url.Values
	FullPath string

	// Matched is the record chain from root ancestor to leaf.
	Matched []*Record

	// RedirectedFrom is the original location when the match went through a
	// redirect.
	RedirectedFrom *Location

	Meta Meta
}

// History is the URL backend collaborator. It supplies the raw location
// string and keeps the externally visible URL in sync with the committed
// route. Implementations deliver back/forward notifications by calling
// Controller.TransitionTo with the new raw location.
type History interface {
	// Location returns the current raw location string.
	Location() string

	// EnsureURL makes the displayed URL equal fullPath, replacing the current
	// history entry when replace is set and pushing otherwise. Called with an
	// unchanged fullPath it must be a no-op.
	EnsureURL(fullPath string, replace bool)
}

// LeaveGuard is implemented by live view instances that want to confirm or
// cancel navigating away from their record.
type LeaveGuard interface {
	BeforeRouteLeave(to, from *Route, next func(Decision))
}

// UpdateGuard is implemented by live view instances of records shared between
// the previous and next route, reused with different params.
type UpdateGuard interface {
	BeforeRouteUpdate(to, from *Route, next func(Decision))
}

// EnterGuard is implemented by view definitions of newly activated records.
// The instance does not exist yet when the guard runs; use Defer to receive
// it after the view tree settles.
type EnterGuard interface {
	BeforeRouteEnter(to, from *Route, next func(Decision))
}
