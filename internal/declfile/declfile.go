// Package declfile loads route declaration trees from JSON files for the
// wayfind CLI and inspector. View definitions in a file are placeholder
// names; hosts embedding the router register real views in code.
package declfile

import (
	"fmt"
	"net/url"
	"os"

	"github.com/tidwall/gjson"

	"github.com/vango-dev/wayfind/pkg/router"
)

// Placeholder stands in for a view definition declared by name in a file.
type Placeholder string

// Load reads and parses a declaration file.
func Load(path string) ([]router.Declaration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading declaration file: %w", err)
	}
	decls, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return decls, nil
}

// Parse parses a JSON array of route declarations.
func Parse(data []byte) ([]router.Declaration, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid JSON")
	}
	root := gjson.ParseBytes(data)
	if !root.IsArray() {
		return nil, fmt.Errorf("top-level value must be an array of declarations")
	}

	var decls []router.Declaration
	var parseErr error
	root.ForEach(func(_, value gjson.Result) bool {
		decl, err := parseDecl(value)
		if err != nil {
			parseErr = err
			return false
		}
		decls = append(decls, decl)
		return true
	})
	return decls, parseErr
}

func parseDecl(value gjson.Result) (router.Declaration, error) {
	if !value.IsObject() {
		return router.Declaration{}, fmt.Errorf("declaration must be an object, got %s", value.Type)
	}
	path := value.Get("path")
	if !path.Exists() {
		return router.Declaration{}, fmt.Errorf("declaration is missing \"path\"")
	}

	decl := router.Declaration{
		Path:          path.String(),
		Name:          value.Get("name").String(),
		CaseSensitive: value.Get("caseSensitive").Bool(),
		Strict:        value.Get("strict").Bool(),
	}

	if c := value.Get("component"); c.Exists() {
		decl.Component = Placeholder(c.String())
	}
	if cs := value.Get("components"); cs.IsObject() {
		decl.Components = make(map[string]any)
		cs.ForEach(func(slot, view gjson.Result) bool {
			decl.Components[slot.String()] = Placeholder(view.String())
			return true
		})
	}

	if r := value.Get("redirect"); r.Exists() {
		redirect, err := parseRedirect(r)
		if err != nil {
			return router.Declaration{}, fmt.Errorf("route %q: %w", decl.Path, err)
		}
		decl.Redirect = redirect
	}

	if a := value.Get("alias"); a.Exists() {
		if a.IsArray() {
			a.ForEach(func(_, alias gjson.Result) bool {
				decl.Alias = append(decl.Alias, alias.String())
				return true
			})
		} else {
			decl.Alias = []string{a.String()}
		}
	}

	if m := value.Get("meta"); m.IsObject() {
		decl.Meta = router.Meta{}
		m.ForEach(func(key, val gjson.Result) bool {
			decl.Meta[key.String()] = val.Value()
			return true
		})
	}

	if children := value.Get("children"); children.IsArray() {
		var childErr error
		children.ForEach(func(_, child gjson.Result) bool {
			decl2, err := parseDecl(child)
			if err != nil {
				childErr = err
				return false
			}
			decl.Children = append(decl.Children, decl2)
			return true
		})
		if childErr != nil {
			return router.Declaration{}, fmt.Errorf("route %q: %w", decl.Path, childErr)
		}
	}

	return decl, nil
}

// parseRedirect accepts a string path or an object with path/name and
// optional params, query, and hash.
func parseRedirect(value gjson.Result) (any, error) {
	if value.Type == gjson.String {
		return value.String(), nil
	}
	if !value.IsObject() {
		return nil, fmt.Errorf("redirect must be a string or object, got %s", value.Type)
	}

	loc := router.Location{
		Path: value.Get("path").String(),
		Name: value.Get("name").String(),
		Hash: value.Get("hash").String(),
	}
	if loc.Path == "" && loc.Name == "" {
		return nil, fmt.Errorf("redirect object needs \"path\" or \"name\"")
	}
	if params := value.Get("params"); params.IsObject() {
		loc.Params = make(map[string]string)
		params.ForEach(func(key, val gjson.Result) bool {
			loc.Params[key.String()] = val.String()
			return true
		})
	}
	if query := value.Get("query"); query.IsObject() {
		loc.Query = url.Values{}
		query.ForEach(func(key, val gjson.Result) bool {
			loc.Query.Add(key.String(), val.String())
			return true
		})
	}
	return loc, nil
}
