// Package query turns the user's ordered filter conditions into an immutable
// conjunction of backend-neutral fragments.
package query

// Compiled is an immutable AND of fragments. Every compile returns a new
// pointer, so identity comparison tells callers the query changed.
type Compiled struct {
	fragments []Fragment
}

// MatchAll returns a compiled query with no constraints.
func MatchAll() *Compiled { return &Compiled{} }

// Compile builds the conjunction of every enabled entry's fragment in list order.
// Disabled entries and incomplete conditions contribute nothing.
func Compile(entries []Entry) *Compiled {
	c := &Compiled{}
	for _, e := range entries {
		if !e.Enabled || e.Condition == nil {
			continue
		}
		if f, ok := e.Condition.Fragment(); ok {
			c.fragments = append(c.fragments, f)
		}
	}
	return c
}

// Fragments returns a copy of the fragments. A nil query has none.
func (c *Compiled) Fragments() []Fragment {
	if c == nil {
		return nil
	}
	return append([]Fragment(nil), c.fragments...)
}

// IsMatchAll reports whether the query has no constraints.
func (c *Compiled) IsMatchAll() bool { return c == nil || len(c.fragments) == 0 }

// With returns a new query that additionally requires extra.
func (c *Compiled) With(extra ...Fragment) *Compiled {
	out := &Compiled{fragments: make([]Fragment, 0, len(c.Fragments())+len(extra))}
	out.fragments = append(out.fragments, c.Fragments()...)
	out.fragments = append(out.fragments, extra...)
	return out
}
