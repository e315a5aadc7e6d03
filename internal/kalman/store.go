package kalman

import (
	"sort"
	"sync"
)

// Store keeps one filter per pair id. Each Update replaces the stored state
// value, so a FilterState is never shared between pairs.
type Store struct {
	cfg    Config
	mu     sync.Mutex
	states map[string]FilterState
}

// NewStore creates an empty store whose filters use cfg.
func NewStore(cfg Config) *Store {
	return &Store{cfg: cfg.normalized(), states: make(map[string]FilterState)}
}

// PairID is the canonical key for a pair of symbols.
func PairID(a, b string) string { return a + "/" + b }

// Update advances the filter for id, seeding it with beta and intercept on first use.
func (s *Store) Update(id string, beta, intercept, a, b float64) (Estimate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[id]
	if !ok {
		seeded, err := Seed(beta, intercept, Covariance{{1, 0}, {0, 1}}, s.cfg)
		if err != nil {
			return Estimate{}, err
		}
		state = seeded
	}
	next, est := state.Step(a, b)
	s.states[id] = next
	return est, nil
}

// Get returns the current state for id.
func (s *Store) Get(id string) (FilterState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[id]
	return st, ok
}

// Reset drops the filter for id; the next Update reseeds it.
func (s *Store) Reset(id string) {
	s.mu.Lock()
	delete(s.states, id)
	s.mu.Unlock()
}

// IDs lists tracked pairs in sorted order.
func (s *Store) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.states))
	for id := range s.states {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
