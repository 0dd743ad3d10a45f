// Package routepath compiles declarative route paths into positional match
// patterns and provides the path arithmetic the router builds on: relative
// resolution, normalization, and fullPath assembly.
//
// Supported segment forms:
//
//	/users          static segment
//	/users/:id      named parameter (one segment)
//	/users/:id?     optional named parameter
//	/files/*        wildcard (consumes the rest of the path)
package routepath

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Key describes one positional parameter of a compiled pattern, in capture
// order.
type Key struct {
	// Name is the parameter name. Empty for an unnamed wildcard capture.
	Name string

	// Optional indicates the segment may be absent from a matching path.
	Optional bool
}

// Pattern is a compiled route path. Immutable after Compile.
type Pattern struct {
	source string
	re     *regexp.Regexp
	keys   []Key
}

// Source returns the path the pattern was compiled from.
func (p *Pattern) Source() string { return p.source }

// Keys returns the ordered parameter descriptors.
func (p *Pattern) Keys() []Key { return p.keys }

// paramSegmentRe recognizes a parameter segment: ":name" with an optional
// trailing "?".
var paramSegmentRe = regexp.MustCompile(`^:([A-Za-z0-9_]+)(\?)?$`)

// Compile turns a normalized route path into a Pattern.
//
// Duplicate parameter names compile successfully; DuplicateKeys lets the
// caller decide whether to warn. caseSensitive controls
// whether static segments match case-exactly; strict controls whether a
// trailing slash on the matched path is tolerated.
func Compile(path string, caseSensitive, strict bool) (*Pattern, error) {
	var (
		sb   strings.Builder
		keys []Key
	)

	sb.WriteString("^")
	if path == "*" {
		// Bare catch-all: match anything, capture it all.
		sb.WriteString("(.*)")
		keys = append(keys, Key{})
	} else {
		for _, seg := range strings.Split(strings.TrimPrefix(path, "/"), "/") {
			switch {
			case seg == "*":
				sb.WriteString("(?:/(.*))?")
				keys = append(keys, Key{})
			case strings.HasPrefix(seg, ":"):
				m := paramSegmentRe.FindStringSubmatch(seg)
				if m == nil {
					return nil, fmt.Errorf("invalid parameter segment %q in path %q", seg, path)
				}
				optional := m[2] == "?"
				if optional {
					sb.WriteString("(?:/([^/]+))?")
				} else {
					sb.WriteString("/([^/]+)")
				}
				keys = append(keys, Key{Name: m[1], Optional: optional})
			case seg == "":
				// Root path "/" compiles to the empty segment list.
			default:
				sb.WriteString("/")
				sb.WriteString(regexp.QuoteMeta(seg))
			}
		}
	}
	if !strict {
		sb.WriteString("/?")
	}
	sb.WriteString("$")

	expr := sb.String()
	if !caseSensitive {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compiling path %q: %w", path, err)
	}

	return &Pattern{source: path, re: re, keys: keys}, nil
}

// DuplicateKeys returns parameter names that appear more than once.
func (p *Pattern) DuplicateKeys() []string {
	seen := make(map[string]bool, len(p.keys))
	var dups []string
	for _, k := range p.keys {
		if k.Name == "" {
			continue
		}
		if seen[k.Name] {
			dups = append(dups, k.Name)
		}
		seen[k.Name] = true
	}
	return dups
}

// Match tests path against the pattern and extracts parameter values
// positionally. Percent-escapes in values are decoded; undecodable values are
// kept raw. An unnamed wildcard capture is stored under "pathMatch".
func (p *Pattern) Match(path string) (map[string]string, bool) {
	m := p.re.FindStringSubmatch(path)
	if m == nil {
		return nil, false
	}

	params := make(map[string]string, len(p.keys))
	for i, k := range p.keys {
		val := m[i+1]
		if val == "" && k.Optional {
			continue
		}
		if decoded, err := url.PathUnescape(val); err == nil {
			val = decoded
		}
		name := k.Name
		if name == "" {
			name = "pathMatch"
		}
		params[name] = val
	}
	return params, true
}

// Fill substitutes params into the pattern's source path. A missing value for
// a required parameter is an error; optional segments without a value are
// dropped.
func Fill(path string, params map[string]string) (string, error) {
	if path == "*" {
		if v, ok := params["pathMatch"]; ok {
			return v, nil
		}
		return "", fmt.Errorf("missing param \"pathMatch\" for path %q", path)
	}

	var out []string
	for _, seg := range strings.Split(strings.TrimPrefix(path, "/"), "/") {
		switch {
		case seg == "*":
			if v, ok := params["pathMatch"]; ok && v != "" {
				out = append(out, v)
			}
		case strings.HasPrefix(seg, ":"):
			m := paramSegmentRe.FindStringSubmatch(seg)
			if m == nil {
				return "", fmt.Errorf("invalid parameter segment %q in path %q", seg, path)
			}
			v, ok := params[m[1]]
			if !ok || v == "" {
				if m[2] == "?" {
					continue
				}
				return "", fmt.Errorf("missing param %q for path %q", m[1], path)
			}
			out = append(out, v)
		case seg == "":
		default:
			out = append(out, seg)
		}
	}
	return "/" + strings.Join(out, "/"), nil
}

// Normalize resolves a declared path against its parent. Absolute paths pass
// through; relative paths are joined to parent with a slash. Doubled slashes
// are collapsed and, unless strict, the trailing slash is stripped.
func Normalize(path, parent string, strict bool) string {
	if !strict {
		path = strings.TrimSuffix(path, "/")
	}
	if !strings.HasPrefix(path, "/") && parent != "" {
		path = parent + "/" + path
	}
	return CleanDoubleSlash(path)
}

// CleanDoubleSlash collapses consecutive slashes.
func CleanDoubleSlash(path string) string {
	for strings.Contains(path, "//") {
		path = strings.ReplaceAll(path, "//", "/")
	}
	return path
}

// Resolve computes a (possibly relative) target path against a base path.
// "." and ".." segments are applied against the base's directory, or against
// the base itself when appendPath is set. A target starting with "/" is
// already absolute and returned as-is.
func Resolve(relative, base string, appendPath bool) string {
	if strings.HasPrefix(relative, "/") {
		return relative
	}
	if relative == "" {
		return base
	}
	if strings.HasPrefix(relative, "?") || strings.HasPrefix(relative, "#") {
		return base + relative
	}

	stack := strings.Split(base, "/")
	// Drop the trailing segment so relative paths resolve against the
	// directory, unless the caller wants to append below the base.
	if !appendPath || stack[len(stack)-1] == "" {
		stack = stack[:len(stack)-1]
	}

	for _, seg := range strings.Split(strings.TrimPrefix(relative, "/"), "/") {
		switch seg {
		case "..":
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
		case ".", "":
		default:
			stack = append(stack, seg)
		}
	}

	// Ensure leading slash.
	if len(stack) == 0 || stack[0] != "" {
		stack = append([]string{""}, stack...)
	}
	return strings.Join(stack, "/")
}

// Parse splits a raw location string into path, query, and hash parts. The
// hash is split off first, so "?" inside the fragment stays in the fragment.
func Parse(fullPath string) (path, query, hash string) {
	path = fullPath
	if i := strings.Index(path, "#"); i >= 0 {
		hash = path[i:]
		path = path[:i]
	}
	if i := strings.Index(path, "?"); i >= 0 {
		query = path[i+1:]
		path = path[:i]
	}
	return path, query, hash
}

// FullPath assembles path, encoded query, and hash into a display path.
func FullPath(path string, query url.Values, hash string) string {
	var sb strings.Builder
	sb.WriteString(path)
	if len(query) > 0 {
		sb.WriteString("?")
		sb.WriteString(query.Encode())
	}
	sb.WriteString(hash)
	return sb.String()
}
