package declfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vango-dev/wayfind/pkg/router"
)

const sample = `[
  {"path": "/", "name": "home", "component": "Home"},
  {
    "path": "/users",
    "component": "Users",
    "alias": ["/people"],
    "meta": {"requiresAuth": true, "order": 3},
    "children": [
      {"path": ":id", "name": "user", "components": {"default": "User", "sidebar": "UserNav"}}
    ]
  },
  {"path": "/old", "redirect": "/users"},
  {"path": "/profile", "redirect": {"name": "user", "params": {"id": "me"}, "hash": "#top"}},
  {"path": "*", "component": "NotFound"}
]`

func TestParse(t *testing.T) {
	decls, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(decls) != 5 {
		t.Fatalf("got %d declarations, want 5", len(decls))
	}

	home := decls[0]
	if home.Path != "/" || home.Name != "home" {
		t.Errorf("home = %+v", home)
	}
	if home.Component != Placeholder("Home") {
		t.Errorf("home.Component = %v, want Placeholder(Home)", home.Component)
	}

	users := decls[1]
	if len(users.Alias) != 1 || users.Alias[0] != "/people" {
		t.Errorf("users.Alias = %v", users.Alias)
	}
	if users.Meta["requiresAuth"] != true {
		t.Errorf("users.Meta = %v", users.Meta)
	}
	if len(users.Children) != 1 {
		t.Fatalf("users.Children = %v", users.Children)
	}
	child := users.Children[0]
	if child.Path != ":id" || child.Name != "user" {
		t.Errorf("child = %+v", child)
	}
	if child.Components["sidebar"] != Placeholder("UserNav") {
		t.Errorf("child.Components = %v", child.Components)
	}

	if redirect, ok := decls[2].Redirect.(string); !ok || redirect != "/users" {
		t.Errorf("string redirect = %v", decls[2].Redirect)
	}
	loc, ok := decls[3].Redirect.(router.Location)
	if !ok {
		t.Fatalf("object redirect = %T", decls[3].Redirect)
	}
	if loc.Name != "user" || loc.Params["id"] != "me" || loc.Hash != "#top" {
		t.Errorf("redirect location = %+v", loc)
	}
}

func TestParseFeedsTable(t *testing.T) {
	decls, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	m := router.NewMatcher(router.NewTable(decls), nil)

	route := m.Match(router.Loc("/people/7"), nil, nil)
	if route.Params["id"] != "7" {
		t.Errorf("alias match params = %v", route.Params)
	}
	if route.Name != "user" {
		t.Errorf("alias match name = %q, want user", route.Name)
	}

	route = m.Match(router.Loc("/old"), nil, nil)
	if route.Path != "/users" {
		t.Errorf("redirect landed on %q, want /users", route.Path)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"invalid json", `{`, "invalid JSON"},
		{"not an array", `{"path": "/"}`, "must be an array"},
		{"not an object", `[42]`, "must be an object"},
		{"missing path", `[{"name": "x"}]`, "missing \"path\""},
		{"bad redirect type", `[{"path": "/", "redirect": 42}]`, "redirect must be"},
		{"empty redirect object", `[{"path": "/", "redirect": {}}]`, "needs \"path\" or \"name\""},
		{"bad child", `[{"path": "/", "children": [{"name": "x"}]}]`, "missing \"path\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.in))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want substring %q", err, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.json")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}

	decls, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(decls) != 5 {
		t.Errorf("got %d declarations, want 5", len(decls))
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
