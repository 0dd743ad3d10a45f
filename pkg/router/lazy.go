package router

import (
	"fmt"
	"sync"
)

// ViewFactory is the lazy form of a view definition. Instead of a concrete
// view, a declaration may carry a factory that produces one asynchronously.
// The factory either calls resolve or reject itself (synchronously or later,
// from any goroutine), or returns a Deferred that the resolver awaits.
// resolve and reject are idempotent: the first call wins.
type ViewFactory func(resolve func(view any), reject func(err error)) any

// Deferred is a "then"-shaped pending result a ViewFactory may return instead
// of driving resolve/reject directly.
type Deferred interface {
	Then(resolve func(view any), reject func(err error))
}

// Module wraps a view definition behind a default-export convention. The
// resolver unwraps it transparently.
type Module struct {
	Default any
}

type lazySlot struct {
	record  *Record
	slot    string
	factory ViewFactory
}

// resolveLazyViews returns the pipeline step that loads every factory-form
// view definition in the activated records. The step's continuation fires
// once all factories have resolved, immediately if there are none, or as soon
// as the first factory rejects. Resolved definitions are written back into
// Record.Components, so repeat activations skip the factory entirely.
func resolveLazyViews(activated []*Record) Guard {
	return func(to, from *Route, next func(Decision)) {
		var slots []lazySlot
		for _, record := range activated {
			components := record.componentSnapshot()
			for _, slot := range slotNames(components) {
				if factory := asFactory(components[slot]); factory != nil {
					slots = append(slots, lazySlot{record, slot, factory})
				}
			}
		}
		if len(slots) == 0 {
			next(Proceed())
			return
		}

		var (
			mu       sync.Mutex
			pending  = len(slots)
			finished bool
		)
		settle := func(err error) {
			mu.Lock()
			defer mu.Unlock()
			if finished {
				return
			}
			if err != nil {
				finished = true
				next(Abort(err))
				return
			}
			pending--
			if pending == 0 {
				finished = true
				next(Proceed())
			}
		}

		for _, ls := range slots {
			ls := ls
			var once sync.Once
			resolve := func(view any) {
				once.Do(func() {
					ls.record.setComponent(ls.slot, unwrapView(view))
					settle(nil)
				})
			}
			reject := func(err error) {
				once.Do(func() {
					if err == nil {
						err = fmt.Errorf("view factory rejected")
					}
					settle(fmt.Errorf("resolving view for %q slot %q: %w", ls.record.Path, ls.slot, err))
				})
			}

			result := ls.factory(resolve, reject)
			if deferred, ok := result.(Deferred); ok && deferred != nil {
				deferred.Then(resolve, reject)
			}
		}
	}
}

// asFactory recognizes the factory forms a view definition may take.
func asFactory(def any) ViewFactory {
	switch f := def.(type) {
	case ViewFactory:
		return f
	case func(func(any), func(error)) any:
		return f
	case func(func(any), func(error)):
		return func(resolve func(any), reject func(error)) any {
			f(resolve, reject)
			return nil
		}
	default:
		return nil
	}
}

// unwrapView applies the default-export convention to a resolved view.
func unwrapView(view any) any {
	switch m := view.(type) {
	case Module:
		return m.Default
	case *Module:
		return m.Default
	default:
		return view
	}
}
