// Package router implements declaration-driven navigation for Wayfind.
//
// The router provides:
//   - A hierarchical route table built from nested declarations
//   - Priority-ordered matching with params, redirects, and aliases
//   - A multi-phase, cancelable navigation transition pipeline
//   - Lazy (factory-form) view resolution
//   - Prometheus metrics and OpenTelemetry spans per transition
//
// # Declarations
//
// Routes are declared as a tree and compiled into flat lookup structures:
//
//	table := router.NewTable([]router.Declaration{
//	    {Path: "/", Component: home},
//	    {Path: "/users", Component: users, Children: []router.Declaration{
//	        {Path: ":id", Name: "user", Component: user},
//	    }},
//	    {Path: "*", Component: notFound},
//	})
//
// Paths support named parameters (":id"), optional parameters (":id?"), and a
// catch-all wildcard ("*"). Wildcard entries always match after every other
// declaration regardless of registration order.
//
// # Navigation
//
// A Controller drives transitions against a table and a History backend:
//
//	c := router.New(table, history)
//	c.BeforeEach(func(to, from *router.Route, next func(router.Decision)) {
//	    if to.Meta["requiresAuth"] == true && !loggedIn {
//	        next(router.RedirectTo(router.Loc("/login")))
//	        return
//	    }
//	    next(router.Proceed())
//	})
//	c.Listen(func(to *router.Route) { render(to) })
//	c.TransitionTo(router.Loc("/users/7"), nil, nil)
//
// Guards run strictly in order: leave guards of deactivated records (leaf
// first), global before-guards, update guards of records shared with the
// previous route (root first), per-record enter hooks, lazy view resolution,
// component enter guards, and global resolve-guards. A guard concludes by
// calling next with a Decision: Proceed, Abort, RedirectTo, or Defer.
//
// Starting a new transition while one is pending supersedes the old one; the
// stale pipeline notices on its next step and stops without touching the URL
// or the current route.
package router
