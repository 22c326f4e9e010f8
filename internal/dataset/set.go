package dataset

// Set is an ordered working set of datasets keyed by name.
type Set struct {
	order []string
	byKey map[string]*Dataset
}

// NewSet builds a set from datasets, later entries replacing earlier ones
// with the same name.
func NewSet(ds ...*Dataset) *Set {
	s := &Set{byKey: map[string]*Dataset{}}
	for _, d := range ds {
		s.Add(d)
	}
	return s
}

// Add inserts d, replacing an existing dataset with the same name in place.
func (s *Set) Add(d *Dataset) {
	if d == nil {
		return
	}
	if s.byKey == nil {
		s.byKey = map[string]*Dataset{}
	}
	if _, ok := s.byKey[d.Name]; !ok {
		s.order = append(s.order, d.Name)
	}
	s.byKey[d.Name] = d
}

// Remove drops the named dataset and reports whether it was present.
func (s *Set) Remove(name string) bool {
	if _, ok := s.byKey[name]; !ok {
		return false
	}
	delete(s.byKey, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Lookup returns the named dataset.
func (s *Set) Lookup(name string) (*Dataset, bool) {
	if s == nil {
		return nil, false
	}
	d, ok := s.byKey[name]
	return d, ok
}

// Names returns dataset names in insertion order.
func (s *Set) Names() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// All returns datasets in insertion order.
func (s *Set) All() []*Dataset {
	if s == nil {
		return nil
	}
	out := make([]*Dataset, 0, len(s.order))
	for _, n := range s.order {
		out = append(out, s.byKey[n])
	}
	return out
}

// Len returns the number of datasets.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}
