package router

import (
	"log/slog"
	"net/url"

	"github.com/vango-dev/wayfind/pkg/routepath"
)

// maxRedirectHops bounds redirect and alias re-entry through the matcher. A
// declaration cycle (A redirects to B, B back to A) fails the match cleanly
// instead of recursing until the stack gives out.
const maxRedirectHops = 16

// Matcher resolves locations against a Table. Match is pure: its only side
// effects are diagnostic warnings.
type Matcher struct {
	table  *Table
	logger *slog.Logger
}

// NewMatcher creates a matcher over table. A nil logger falls back to
// slog.Default.
func NewMatcher(table *Table, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{table: table, logger: logger}
}

// Table returns the underlying route table.
func (m *Matcher) Table() *Table { return m.table }

// Match resolves a location to a Route, using current for relative paths and
// named-navigation param inheritance. A location matching nothing yields a
// Route with an empty Matched chain.
func (m *Matcher) Match(raw Location, current *Route, redirectedFrom *Location) *Route {
	return m.match(raw, current, redirectedFrom, 0)
}

func (m *Matcher) match(raw Location, current *Route, redirectedFrom *Location, hops int) *Route {
	if hops > maxRedirectHops {
		m.logger.Warn("giving up on match",
			"path", raw.Path, "name", raw.Name, "hops", hops, "error", ErrRedirectCycle)
		return newRoute(nil, raw, redirectedFrom)
	}

	loc := normalizeLocation(raw, current)

	if loc.Name != "" {
		record := m.table.RecordByName(loc.Name)
		if record == nil {
			m.logger.Warn("route with requested name does not exist", "name", loc.Name)
			return newRoute(nil, loc, redirectedFrom)
		}

		if loc.Params == nil {
			loc.Params = make(map[string]string)
		}
		// Inherit required params from the current route so callers can omit
		// params that do not change. Optional params are never inherited.
		if current != nil {
			for _, key := range record.pattern.Keys() {
				if key.Optional || key.Name == "" {
					continue
				}
				if _, ok := loc.Params[key.Name]; ok {
					continue
				}
				if v, ok := current.Params[key.Name]; ok {
					loc.Params[key.Name] = v
				}
			}
		}

		path, err := routepath.Fill(record.Path, loc.Params)
		if err != nil {
			m.logger.Warn("cannot build path for named route",
				"name", loc.Name, "error", err)
			return newRoute(nil, loc, redirectedFrom)
		}
		loc.Path = path
		return m.finalize(record, loc, redirectedFrom, hops)
	}

	if loc.Path != "" {
		loc.Params = make(map[string]string)
		for _, path := range m.table.PathList() {
			record := m.table.RecordByPath(path)
			if params, ok := record.pattern.Match(loc.Path); ok {
				loc.Params = params
				return m.finalize(record, loc, redirectedFrom, hops)
			}
		}
	}

	return newRoute(nil, loc, redirectedFrom)
}

// finalize routes a successful structural match through redirect and alias
// resolution before constructing the Route.
func (m *Matcher) finalize(record *Record, loc Location, redirectedFrom *Location, hops int) *Route {
	if record.Redirect != nil {
		return m.redirect(record, loc, hops)
	}
	if record.MatchAs != "" {
		return m.alias(record, loc, redirectedFrom, hops)
	}
	return newRoute(record, loc, redirectedFrom)
}

// redirect resolves a record's redirect target and re-enters match with it.
// Query, hash, and params carry over from the original location unless the
// redirect target supplies its own.
func (m *Matcher) redirect(record *Record, loc Location, hops int) *Route {
	original := loc
	target := record.Redirect
	if f, ok := target.(RedirectFunc); ok {
		target = f(newRoute(record, loc, nil))
	}

	var redirect Location
	switch v := target.(type) {
	case string:
		redirect = Loc(v)
	case Location:
		redirect = v
	case *Location:
		redirect = *v
	default:
		m.logger.Warn("invalid redirect option", "path", record.Path, "redirect", target)
		return newRoute(nil, loc, nil)
	}

	query := redirect.Query
	if query == nil {
		query = loc.Query
	}
	hash := redirect.Hash
	if hash == "" {
		hash = loc.Hash
	}
	params := redirect.Params
	if params == nil {
		params = loc.Params
	}

	if redirect.Name != "" {
		if m.table.RecordByName(redirect.Name) == nil {
			m.logger.Warn("redirect targets an unknown named route", "name", redirect.Name)
		}
		return m.match(Location{
			Name:       redirect.Name,
			Query:      query,
			Hash:       hash,
			Params:     params,
			normalized: true,
		}, nil, &original, hops+1)
	}

	if redirect.Path != "" {
		parentPath := "/"
		if record.Parent != nil {
			parentPath = record.Parent.Path
		}
		rawPath := routepath.Resolve(redirect.Path, parentPath, true)
		resolved, err := routepath.Fill(rawPath, params)
		if err != nil {
			m.logger.Warn("cannot fill params for redirect path",
				"path", rawPath, "error", err)
			return newRoute(nil, loc, nil)
		}
		return m.match(Location{
			Path:       resolved,
			Query:      query,
			Hash:       hash,
			normalized: true,
		}, nil, &original, hops+1)
	}

	m.logger.Warn("invalid redirect option", "path", record.Path)
	return newRoute(nil, loc, nil)
}

// alias re-matches against the alias target path. The resulting Route keeps
// the alias's path for the URL but uses the target record's chain, so the
// original's views render.
func (m *Matcher) alias(record *Record, loc Location, redirectedFrom *Location, hops int) *Route {
	aliasedPath, err := routepath.Fill(record.MatchAs, loc.Params)
	if err != nil {
		m.logger.Warn("cannot fill params for aliased path",
			"path", record.MatchAs, "error", err)
		return newRoute(nil, loc, nil)
	}
	aliased := m.match(Location{Path: aliasedPath, normalized: true}, nil, nil, hops+1)
	if len(aliased.Matched) > 0 {
		target := aliased.Matched[len(aliased.Matched)-1]
		loc.Params = aliased.Params
		return newRoute(target, loc, redirectedFrom)
	}
	return newRoute(nil, loc, nil)
}

// normalizeLocation resolves a raw location into matchable form: named
// locations pass through, params-only locations re-target the current route,
// and path locations are resolved relative to the current path.
func normalizeLocation(raw Location, current *Route) Location {
	if raw.normalized || raw.Name != "" {
		return raw
	}

	// Params-only navigation: keep the current route, swap params.
	if raw.Path == "" && len(raw.Params) > 0 && current != nil {
		loc := raw
		loc.normalized = true
		params := cloneParams(current.Params)
		for k, v := range raw.Params {
			params[k] = v
		}
		loc.Params = params
		if current.Name != "" {
			loc.Name = current.Name
		} else if len(current.Matched) > 0 {
			rawPath := current.Matched[len(current.Matched)-1].Path
			if path, err := routepath.Fill(rawPath, params); err == nil {
				loc.Path = path
			}
		}
		return loc
	}

	path, rawQuery, hash := routepath.Parse(raw.Path)
	basePath := "/"
	if current != nil {
		basePath = current.Path
	}

	loc := raw
	loc.normalized = true
	loc.Path = routepath.Resolve(path, basePath, raw.Append)
	if loc.Hash == "" {
		loc.Hash = hash
	}

	query := make(url.Values)
	if rawQuery != "" {
		if parsed, err := url.ParseQuery(rawQuery); err == nil {
			for k, vs := range parsed {
				query[k] = vs
			}
		}
	}
	for k, vs := range raw.Query {
		query[k] = append([]string(nil), vs...)
	}
	if len(query) > 0 {
		loc.Query = query
	}
	return loc
}
