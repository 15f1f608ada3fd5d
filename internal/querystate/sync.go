package querystate

import "sync"

// Navigator owns the current location's query string.
type Navigator interface {
	Location() string
	// Replace swaps the current entry without adding to history.
	Replace(rawQuery string)
}

// Synchronizer reads and patches the query state held by a Navigator.
// Every Set is an independent synchronous replace; callers debounce free
// text before calling it.
type Synchronizer struct {
	mu  sync.Mutex
	nav Navigator
}

// NewSynchronizer binds a Synchronizer to nav.
func NewSynchronizer(nav Navigator) *Synchronizer {
	return &Synchronizer{nav: nav}
}

// State returns the current parsed state.
func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Parse(s.nav.Location())
}

// Get returns the current value for key, or fallback iff key is absent.
func (s *Synchronizer) Get(key, fallback string) string {
	return s.State().Get(key, fallback)
}

// Set applies patch and replaces the navigator's current entry.
func (s *Synchronizer) Set(patch Patch) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := Parse(s.nav.Location()).Apply(patch)
	s.nav.Replace(next.Encode())
	return next
}

// History is an in-memory back/forward stack of query strings.
type History struct {
	mu      sync.Mutex
	entries []string
	pos     int
}

// NewHistory starts a history at initial.
func NewHistory(initial string) *History {
	return &History{entries: []string{Parse(initial).Encode()}}
}

// Location returns the current entry.
func (h *History) Location() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[h.pos]
}

// Replace overwrites the current entry.
func (h *History) Replace(rawQuery string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries[h.pos] = rawQuery
}

// Push adds a new entry after the current one, dropping any forward entries.
func (h *History) Push(rawQuery string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries[:h.pos+1], rawQuery)
	h.pos++
}

// Back moves to the previous entry. It reports false at the start.
func (h *History) Back() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pos == 0 {
		return false
	}
	h.pos--
	return true
}

// Forward moves to the next entry. It reports false at the end.
func (h *History) Forward() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pos >= len(h.entries)-1 {
		return false
	}
	h.pos++
	return true
}

// Len returns the number of entries.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
