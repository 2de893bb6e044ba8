// Package leadstore holds the authoritative in-memory lead collection: an
// index by id plus a stable display order.
package leadstore

import (
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"

	"github.com/sells-group/leadpilot/internal/model"
)

// ErrNotFound is returned when no lead has the requested id.
var ErrNotFound = eris.New("leadstore: lead not found")

// Store is safe for concurrent use. Readers always receive deep copies.
type Store struct {
	mu      sync.RWMutex
	byID    map[string]*model.Lead
	order   []string
	version uint64
	nowFunc func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		byID:    make(map[string]*model.Lead),
		nowFunc: time.Now,
	}
}

// FoldName normalises a company name for duplicate detection.
func FoldName(name string) string {
	return cases.Fold().String(strings.Join(strings.Fields(name), " "))
}

// Len returns the number of leads.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Version increments on every mutation; callers compare it to detect change.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Snapshot returns every lead in display order.
func (s *Store) Snapshot() []model.Lead {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Lead, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id].Clone())
	}
	return out
}

// Get returns the lead with the given id.
func (s *Store) Get(id string) (model.Lead, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.byID[id]
	if !ok {
		return model.Lead{}, false
	}
	return l.Clone(), true
}

// Names returns the names of all leads in display order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id].Name)
	}
	return out
}

// Prepend inserts leads ahead of the existing ones in a single update. The
// whole batch is rejected if any id is empty or already present.
func (s *Store) Prepend(leads []model.Lead) error {
	if len(leads) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make(map[string]bool, len(leads))
	for _, l := range leads {
		if l.ID == "" {
			return eris.New("leadstore: lead id is required")
		}
		if _, exists := s.byID[l.ID]; exists || batch[l.ID] {
			return eris.Errorf("leadstore: duplicate lead id %s", l.ID)
		}
		batch[l.ID] = true
	}

	ids := make([]string, 0, len(leads)+len(s.order))
	for _, l := range leads {
		c := l.Clone()
		s.byID[l.ID] = &c
		ids = append(ids, l.ID)
	}
	s.order = append(ids, s.order...)
	s.version++
	return nil
}

// Update applies fn to the lead with the given id and returns the result.
// Every other lead is left untouched and the display order is preserved.
func (s *Store) Update(id string, fn func(*model.Lead)) (model.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.byID[id]
	if !ok {
		return model.Lead{}, eris.Wrapf(ErrNotFound, "leadstore: update %s", id)
	}
	next := cur.Clone()
	fn(&next)
	next.ID = cur.ID
	next.UpdatedAt = s.nowFunc().UTC()
	s.byID[id] = &next
	s.version++
	return next.Clone(), nil
}

// Replace swaps the stored lead that shares l's id.
func (s *Store) Replace(l model.Lead) error {
	_, err := s.Update(l.ID, func(dst *model.Lead) { *dst = l.Clone() })
	return err
}

// SetAutomationStatus records a webhook delivery outcome for one lead.
func (s *Store) SetAutomationStatus(id string, status model.AutomationStatus) error {
	_, err := s.Update(id, func(l *model.Lead) { l.AutomationStatus = status })
	return err
}

// Clear removes every lead.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID = make(map[string]*model.Lead)
	s.order = nil
	s.version++
}

// Load replaces the collection with leads, keeping their order. Leads with an
// empty or repeated id are dropped.
func (s *Store) Load(leads []model.Lead) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID = make(map[string]*model.Lead, len(leads))
	s.order = make([]string, 0, len(leads))
	for _, l := range leads {
		if l.ID == "" {
			continue
		}
		if _, dup := s.byID[l.ID]; dup {
			continue
		}
		c := l.Clone()
		s.byID[l.ID] = &c
		s.order = append(s.order, l.ID)
	}
	s.version++
	return len(s.order)
}
