package library

import (
	"sort"
	"sync"
)

// activeIndex maps patron id to the ISBNs that patron currently holds.
// Each patron's set has its own lock.
type activeIndex struct {
	mu   sync.RWMutex
	sets map[string]*rentalSet
}

type rentalSet struct {
	mu    sync.Mutex
	isbns map[string]struct{}
}

func newActiveIndex() *activeIndex {
	return &activeIndex{sets: make(map[string]*rentalSet)}
}

// of returns the patron's set, creating it on first use.
func (x *activeIndex) of(patronID string) *rentalSet {
	x.mu.RLock()
	set, ok := x.sets[patronID]
	x.mu.RUnlock()

	if ok {
		return set
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	set, ok = x.sets[patronID]
	if !ok {
		set = &rentalSet{isbns: make(map[string]struct{})}
		x.sets[patronID] = set
	}

	return set
}

// list returns the patron's ISBNs without creating an empty set.
func (x *activeIndex) list(patronID string) []string {
	x.mu.RLock()
	set, ok := x.sets[patronID]
	x.mu.RUnlock()

	if !ok {
		return []string{}
	}

	return set.list()
}

// holders counts the patrons holding isbn.
func (x *activeIndex) holders(isbn string) int {
	x.mu.RLock()
	sets := make([]*rentalSet, 0, len(x.sets))

	for _, set := range x.sets {
		sets = append(sets, set)
	}
	x.mu.RUnlock()

	n := 0

	for _, set := range sets {
		if set.has(isbn) {
			n++
		}
	}

	return n
}

func (s *rentalSet) has(isbn string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.isbns[isbn]

	return ok
}

func (s *rentalSet) add(isbn string) {
	s.mu.Lock()
	s.isbns[isbn] = struct{}{}
	s.mu.Unlock()
}

func (s *rentalSet) remove(isbn string) {
	s.mu.Lock()
	delete(s.isbns, isbn)
	s.mu.Unlock()
}

// replace swaps the whole set for isbns.
func (s *rentalSet) replace(isbns []string) {
	next := make(map[string]struct{}, len(isbns))
	for _, isbn := range isbns {
		next[isbn] = struct{}{}
	}

	s.mu.Lock()
	s.isbns = next
	s.mu.Unlock()
}

// list returns a sorted copy.
func (s *rentalSet) list() []string {
	s.mu.Lock()
	out := make([]string, 0, len(s.isbns))

	for isbn := range s.isbns {
		out = append(out, isbn)
	}
	s.mu.Unlock()

	sort.Strings(out)

	return out
}
