package router

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/vango-dev/wayfind/pkg/routepath"
)

// Table holds the flat lookup structures compiled from a declaration tree:
// pathList (matching priority order, wildcards pinned last), pathMap, and
// nameMap. Tables are append-only: AddRoutes extends the structures in place
// without invalidating records handed out earlier.
//
// Structural problems found during a build (duplicate names, duplicate
// parameter keys, missing leading slash) are logged as warnings and never
// fail the build.
type Table struct {
	mu       sync.RWMutex
	pathList []string
	pathMap  map[string]*Record
	nameMap  map[string]*Record
	logger   *slog.Logger
}

// TableOption configures a Table.
type TableOption func(*Table)

// WithTableLogger sets the logger for build diagnostics.
func WithTableLogger(logger *slog.Logger) TableOption {
	return func(t *Table) {
		t.logger = logger
	}
}

// NewTable compiles declarations into a Table.
func NewTable(declarations []Declaration, opts ...TableOption) *Table {
	t := &Table{
		pathMap: make(map[string]*Record),
		nameMap: make(map[string]*Record),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.AddRoutes(declarations)
	return t
}

// AddRoutes registers additional declarations. Safe after the initial build;
// it does not trigger a transition.
func (t *Table) AddRoutes(declarations []Declaration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, decl := range declarations {
		t.addRoute(decl, nil, "")
	}

	// Pin wildcard entries to the tail, preserving registration order within
	// each group, so every concrete path outranks the catch-all.
	for i, n := 0, len(t.pathList); i < n; i++ {
		if t.pathList[i] == "*" {
			t.pathList = append(t.pathList[:i], append(t.pathList[i+1:], "*")...)
			n--
			i--
		}
	}

	// The root declaration "/" normalizes to the empty path; only non-empty
	// relative paths are authoring mistakes.
	for _, path := range t.pathList {
		if path != "" && path != "*" && !strings.HasPrefix(path, "/") {
			t.logger.Warn("route path must start with a slash", "path", path)
		}
	}
}

// addRoute registers one declaration under parent. matchAs, when non-empty,
// marks the record as an alias resolving to that path. Children register
// before the record itself, so deeper paths take matching priority over their
// ancestors.
func (t *Table) addRoute(decl Declaration, parent *Record, matchAs string) {
	parentPath := ""
	if parent != nil {
		parentPath = parent.Path
	}
	path := routepath.Normalize(decl.Path, parentPath, decl.Strict)

	pattern, err := routepath.Compile(path, decl.CaseSensitive, decl.Strict)
	if err != nil {
		t.logger.Warn("skipping route with invalid path", "path", path, "error", err)
		return
	}
	if dups := pattern.DuplicateKeys(); len(dups) > 0 {
		t.logger.Warn("duplicate param keys in path", "path", path, "keys", dups)
	}

	components := decl.Components
	if components == nil && decl.Component != nil {
		components = map[string]any{"default": decl.Component}
	}

	record := &Record{
		Path:        path,
		Name:        decl.Name,
		Components:  components,
		Parent:      parent,
		MatchAs:     matchAs,
		Redirect:    decl.Redirect,
		BeforeEnter: decl.BeforeEnter,
		Meta:        decl.Meta,
		Props:       decl.Props,
		pattern:     pattern,
	}

	for _, child := range decl.Children {
		childMatchAs := ""
		if matchAs != "" {
			childMatchAs = routepath.CleanDoubleSlash(matchAs + "/" + child.Path)
		}
		t.addRoute(child, record, childMatchAs)
	}

	// First registration wins; later duplicates keep the existing record.
	if _, exists := t.pathMap[record.Path]; !exists {
		t.pathList = append(t.pathList, record.Path)
		t.pathMap[record.Path] = record
	}

	for _, alias := range decl.Alias {
		if alias == path {
			t.logger.Warn("alias equals its own path and is ignored", "path", path)
			continue
		}
		aliasDecl := Declaration{
			Path:          alias,
			Children:      decl.Children,
			CaseSensitive: decl.CaseSensitive,
			Strict:        decl.Strict,
		}
		target := record.Path
		if target == "" {
			target = "/"
		}
		t.addRoute(aliasDecl, parent, target)
	}

	if decl.Name != "" {
		if _, exists := t.nameMap[decl.Name]; !exists {
			t.nameMap[decl.Name] = record
		} else if matchAs == "" {
			t.logger.Warn("duplicate route name", "name", decl.Name, "path", path)
		}
	}
}

// PathList returns the paths in matching priority order.
func (t *Table) PathList() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]string(nil), t.pathList...)
}

// RecordByPath returns the record registered for an exact path.
func (t *Table) RecordByPath(path string) *Record {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.pathMap[path]
}

// RecordByName returns the record registered under a route name.
func (t *Table) RecordByName(name string) *Record {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.nameMap[name]
}

// Records returns all records in matching priority order.
func (t *Table) Records() []*Record {
	t.mu.RLock()
	defer t.mu.RUnlock()
	records := make([]*Record, 0, len(t.pathList))
	for _, path := range t.pathList {
		records = append(records, t.pathMap[path])
	}
	return records
}

// Len returns the number of registered records.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.pathList)
}
