package query

import (
	"fmt"
	"slices"

	"github.com/kailas-cloud/geodex/internal/domain"
)

// Schema lists, per field, the condition kinds allowed to address it.
type Schema map[string][]Kind

// Check rejects a condition on an unknown field or on a field of the wrong type.
func (s Schema) Check(c Condition) error {
	kinds, ok := s[c.Field()]
	if !ok {
		return fmt.Errorf("%w: unknown field %q", domain.ErrInvalidCondition, c.Field())
	}
	if !slices.Contains(kinds, c.Kind()) {
		return fmt.Errorf("%w: %s condition on field %q", domain.ErrInvalidCondition, c.Kind(), c.Field())
	}
	return nil
}

// CheckEntries checks every entry, disabled ones included.
func (s Schema) CheckEntries(entries []Entry) error {
	for i, e := range entries {
		if e.Condition == nil {
			return fmt.Errorf("%w: entry %d has no condition", domain.ErrInvalidCondition, i)
		}
		if err := s.Check(e.Condition); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
	}
	return nil
}
