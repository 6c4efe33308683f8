package query

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/kailas-cloud/geodex/internal/domain"
	"github.com/kailas-cloud/geodex/internal/domain/geo"
)

// Entry is one condition in a List together with its enabled flag.
type Entry struct {
	ID        string
	Enabled   bool
	Condition Condition
}

// List is the ordered, user-mutable set of conditions. It is safe for concurrent use;
// readers get snapshots.
type List struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewList creates an empty condition list.
func NewList() *List { return &List{} }

// Add appends an enabled condition and returns its ID.
func (l *List) Add(c Condition) string {
	id := uuid.NewString()
	l.mu.Lock()
	l.entries = append(l.entries, Entry{ID: id, Enabled: true, Condition: c})
	l.mu.Unlock()
	return id
}

// Reset replaces all entries. Entries without an ID get one.
func (l *List) Reset(entries []Entry) {
	cp := make([]Entry, len(entries))
	copy(cp, entries)
	for i := range cp {
		if cp[i].ID == "" {
			cp[i].ID = uuid.NewString()
		}
	}
	l.mu.Lock()
	l.entries = cp
	l.mu.Unlock()
}

// Remove deletes the entry with the given ID.
func (l *List) Remove(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.indexOf(id)
	if i < 0 {
		return fmt.Errorf("condition %s: %w", id, domain.ErrNotFound)
	}
	l.entries = append(l.entries[:i], l.entries[i+1:]...)
	return nil
}

// SetEnabled toggles an entry without removing it.
func (l *List) SetEnabled(id string, enabled bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.indexOf(id)
	if i < 0 {
		return fmt.Errorf("condition %s: %w", id, domain.ErrNotFound)
	}
	l.entries[i].Enabled = enabled
	return nil
}

// Replace swaps the condition of an entry, keeping its position and flag.
func (l *List) Replace(id string, c Condition) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.indexOf(id)
	if i < 0 {
		return fmt.Errorf("condition %s: %w", id, domain.ErrNotFound)
	}
	l.entries[i].Condition = c
	return nil
}

// AppendVertex adds a vertex to a polygon entry.
func (l *List) AppendVertex(id string, p geo.Point) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.indexOf(id)
	if i < 0 {
		return fmt.Errorf("condition %s: %w", id, domain.ErrNotFound)
	}
	pc, ok := l.entries[i].Condition.(PolygonCondition)
	if !ok {
		return fmt.Errorf("%w: condition %s is not a polygon", domain.ErrInvalidCondition, id)
	}
	l.entries[i].Condition = pc.WithVertex(p)
	return nil
}

// Entries returns a snapshot of the list.
func (l *List) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Entry(nil), l.entries...)
}

// Len returns the number of entries.
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Compile compiles the current snapshot.
func (l *List) Compile() *Compiled { return Compile(l.Entries()) }

func (l *List) indexOf(id string) int {
	for i := range l.entries {
		if l.entries[i].ID == id {
			return i
		}
	}
	return -1
}
