package router

import (
	"net/url"

	"github.com/vango-dev/wayfind/pkg/routepath"
)

// newRoute freezes a matched (or failed) location into a Route. record is the
// leaf of the chain, nil for a failed match.
func newRoute(record *Record, loc Location, redirectedFrom *Location) *Route {
	path := loc.Path
	if path == "" {
		path = "/"
	}

	r := &Route{
		Name:           loc.Name,
		Path:           path,
		Hash:           loc.Hash,
		Params:         cloneParams(loc.Params),
		Query:          cloneQuery(loc.Query),
		FullPath:       routepath.FullPath(path, loc.Query, loc.Hash),
		RedirectedFrom: redirectedFrom,
		Meta:           Meta{},
	}
	if record != nil {
		if r.Name == "" {
			r.Name = record.Name
		}
		if record.Meta != nil {
			r.Meta = record.Meta
		}
		r.Matched = chainOf(record)
	}
	return r
}

// chainOf walks parent links from record to the root and returns the chain in
// root-to-leaf order.
func chainOf(record *Record) []*Record {
	var chain []*Record
	for r := record; r != nil; r = r.Parent {
		chain = append(chain, r)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// nowhere is the route a controller points at before any transition commits.
var nowhere = newRoute(nil, Location{Path: "/"}, nil)

// Nowhere returns the sentinel start route. It is shared: comparing against
// it is an identity check.
func Nowhere() *Route { return nowhere }

// isSameRoute reports whether two routes denote the same resolved location.
// Used for duplicate-navigation detection.
func isSameRoute(a, b *Route) bool {
	if b == nowhere {
		return a == b
	}
	if a == nil || b == nil {
		return false
	}
	if a.Path != "" && b.Path != "" {
		return a.Path == b.Path && a.Hash == b.Hash && sameQuery(a.Query, b.Query)
	}
	if a.Name != "" && b.Name != "" {
		return a.Name == b.Name && a.Hash == b.Hash &&
			sameQuery(a.Query, b.Query) && sameParams(a.Params, b.Params)
	}
	return false
}

// resolveChains splits the current and target matched chains at their first
// point of divergence. Chains are prefixes of the declaration tree, so record
// identity comparison is sufficient and divergence is monotonic.
func resolveChains(current, target []*Record) (updated, activated, deactivated []*Record) {
	max := len(current)
	if len(target) < max {
		max = len(target)
	}
	i := 0
	for i < max && current[i] == target[i] {
		i++
	}
	return target[:i], target[i:], current[i:]
}

func cloneParams(params map[string]string) map[string]string {
	out := make(map[string]string, len(params))
	for k, v := range params {
		out[k] = v
	}
	return out
}

func cloneQuery(query url.Values) url.Values {
	out := make(url.Values, len(query))
	for k, vs := range query {
		out[k] = append([]string(nil), vs...)
	}
	return out
}

func sameParams(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

func sameQuery(a, b url.Values) bool {
	return a.Encode() == b.Encode()
}
