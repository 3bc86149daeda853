package display

import "sync"

// Layout is the set of element ids a page renders.
type Layout struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

// NewLayout creates a layout holding ids.
func NewLayout(ids ...string) *Layout {
	l := &Layout{ids: make(map[string]struct{}, len(ids))}
	l.Add(ids...)
	return l
}

// DashboardLayout is the editor page: the three progress steps and, per
// flight card, the card and its sweep icon.
func DashboardLayout(flightCards int) *Layout {
	l := NewLayout()
	for _, s := range Steps {
		l.Add(StepID(s))
	}
	for i := 0; i < flightCards; i++ {
		l.Add(FlightCardID(i), PlaneIconID(i))
	}
	return l
}

// Add inserts ids.
func (l *Layout) Add(ids ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, id := range ids {
		l.ids[id] = struct{}{}
	}
}

// Replace swaps the whole set.
func (l *Layout) Replace(ids ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ids = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		l.ids[id] = struct{}{}
	}
}

// Has reports whether id is part of the layout.
func (l *Layout) Has(id string) bool {
	if l == nil {
		return false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.ids[id]
	return ok
}

// Len returns the number of ids.
func (l *Layout) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.ids)
}
