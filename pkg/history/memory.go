// Package history provides URL backends for the Wayfind controller. A
// backend owns the raw location string, keeps it in sync with the committed
// route, and feeds external back/forward movement into the controller.
package history

import (
	"sync"

	"github.com/vango-dev/wayfind/pkg/router"
)

// Memory is an in-memory URL stack implementing router.History. It backs
// tests, CLIs, and any host without a real address bar.
type Memory struct {
	mu         sync.Mutex
	stack      []string
	index      int
	travelTo   int // target index during Go, -1 otherwise
	controller *router.Controller
}

// NewMemory creates a memory history starting at initial ("/" when empty).
func NewMemory(initial string) *Memory {
	if initial == "" {
		initial = "/"
	}
	return &Memory{
		stack:    []string{initial},
		travelTo: -1,
	}
}

// Bind attaches the controller that Push, Replace, Back, and Forward drive.
func (m *Memory) Bind(c *router.Controller) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.controller = c
}

// Location returns the current raw location.
func (m *Memory) Location() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stack[m.index]
}

// EnsureURL synchronizes the stack with a committed or restored fullPath.
// Called by the controller; not part of the application-facing API.
func (m *Memory) EnsureURL(fullPath string, replace bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Back/forward travel lands on an existing entry.
	if m.travelTo >= 0 && m.stack[m.travelTo] == fullPath {
		m.index = m.travelTo
		m.travelTo = -1
		return
	}
	m.travelTo = -1

	if m.stack[m.index] == fullPath {
		return
	}
	if replace {
		m.stack[m.index] = fullPath
		return
	}
	m.stack = append(m.stack[:m.index+1], fullPath)
	m.index++
}

// Push navigates to a raw location, appending a history entry on commit.
func (m *Memory) Push(raw string) {
	m.transition(raw, false)
}

// Replace navigates to a raw location, replacing the current entry on commit.
func (m *Memory) Replace(raw string) {
	m.transition(raw, true)
}

func (m *Memory) transition(raw string, replace bool) {
	m.mu.Lock()
	c := m.controller
	m.mu.Unlock()
	if c == nil {
		return
	}
	loc := router.Loc(raw)
	loc.Replace = replace
	c.TransitionTo(loc, nil, nil)
}

// Go moves n entries through the stack and re-dispatches that location.
// Out-of-range moves are ignored.
func (m *Memory) Go(n int) {
	m.mu.Lock()
	target := m.index + n
	if target < 0 || target >= len(m.stack) {
		m.mu.Unlock()
		return
	}
	m.travelTo = target
	raw := m.stack[target]
	c := m.controller
	m.mu.Unlock()
	if c == nil {
		return
	}
	c.TransitionTo(router.Loc(raw), nil, func(error) {
		m.mu.Lock()
		m.travelTo = -1
		m.mu.Unlock()
	})
}

// Back moves one entry back.
func (m *Memory) Back() { m.Go(-1) }

// Forward moves one entry forward.
func (m *Memory) Forward() { m.Go(1) }

// Entries returns a copy of the stack, oldest first.
func (m *Memory) Entries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.stack...)
}

// Index returns the position of the current entry.
func (m *Memory) Index() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index
}
