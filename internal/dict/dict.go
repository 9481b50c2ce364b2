package dict

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Table maps decoded integers to display labels. Tables are immutable once
// built and may be shared by many variables.
type Table struct {
	labels map[uint64]string
}

// NewTable copies labels into a new Table.
func NewTable(labels map[uint64]string) *Table {
	t := &Table{labels: make(map[uint64]string, len(labels))}
	for k, v := range labels {
		t.labels[k] = v
	}
	return t
}

// Lookup returns the label registered for v.
func (t *Table) Lookup(v uint64) (string, bool) {
	if t == nil {
		return "", false
	}
	label, ok := t.labels[v]
	return label, ok
}

// Len returns the number of labels in the table.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.labels)
}

// Values returns the labelled values in ascending order.
func (t *Table) Values() []uint64 {
	if t == nil {
		return nil
	}
	out := make([]uint64, 0, len(t.labels))
	for k := range t.labels {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Sentinel reserves one value of a field for a special meaning such as
// "infinite" or "now". It takes precedence over the field's table.
type Sentinel struct {
	Value uint64
	Label string
}

// MaxSentinel reserves the largest value representable in width bits.
func MaxSentinel(width int, label string) *Sentinel {
	return &Sentinel{Value: maxValue(width), Label: label}
}

func maxValue(width int) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return uint64(1)<<uint(width) - 1
}

// Resolve applies the sentinel, then the table.
func Resolve(s *Sentinel, t *Table, v uint64) (string, bool) {
	if s != nil && s.Value == v {
		return s.Label, true
	}
	return t.Lookup(v)
}

// Override is a per-variable replacement loaded from a dictionary file.
type Override struct {
	Name     string
	Table    *Table
	Sentinel *Sentinel
}

// Store holds overrides keyed by variable name. A nil Store is empty.
type Store struct {
	vars map[string]Override
}

// File is the on-disk dictionary format, shared by JSON and YAML.
type File struct {
	Variables []FileVariable `json:"variables" yaml:"variables"`
}

type FileVariable struct {
	Name     string            `json:"name" yaml:"name"`
	Labels   map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
	Sentinel *FileSentinel     `json:"sentinel,omitempty" yaml:"sentinel,omitempty"`
}

type FileSentinel struct {
	Value uint64 `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

func FromFile(file File) (*Store, error) {
	store := &Store{vars: make(map[string]Override)}
	for i, entry := range file.Variables {
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			return nil, fmt.Errorf("variables[%d]: empty name", i)
		}
		if _, exists := store.vars[name]; exists {
			return nil, fmt.Errorf("variables[%d]: duplicate variable %s", i, name)
		}
		ov := Override{Name: name}
		if len(entry.Labels) > 0 {
			labels := make(map[uint64]string, len(entry.Labels))
			for key, label := range entry.Labels {
				v, err := strconv.ParseUint(strings.TrimSpace(key), 10, 64)
				if err != nil {
					return nil, fmt.Errorf("variables[%d]: label key %q is not a number", i, key)
				}
				labels[v] = strings.TrimSpace(label)
			}
			ov.Table = NewTable(labels)
		}
		if entry.Sentinel != nil {
			ov.Sentinel = &Sentinel{Value: entry.Sentinel.Value, Label: strings.TrimSpace(entry.Sentinel.Label)}
		}
		store.vars[name] = ov
	}
	return store, nil
}

// Lookup resolves v against the override registered for name.
func (s *Store) Lookup(name string, v uint64) (string, bool) {
	if s == nil {
		return "", false
	}
	ov, ok := s.vars[name]
	if !ok {
		return "", false
	}
	return Resolve(ov.Sentinel, ov.Table, v)
}

// Validate checks every override against the variable widths reported by
// width. Unknown variables and out-of-range values are errors.
func (s *Store) Validate(width func(name string) (int, bool)) error {
	if s == nil {
		return nil
	}
	for _, name := range s.Names() {
		w, ok := width(name)
		if !ok {
			return fmt.Errorf("dictionary: unknown variable %s", name)
		}
		limit := maxValue(w)
		ov := s.vars[name]
		for _, v := range ov.Table.Values() {
			if v > limit {
				return fmt.Errorf("dictionary: %s: value %d exceeds %d-bit width", name, v, w)
			}
		}
		if ov.Sentinel != nil && ov.Sentinel.Value > limit {
			return fmt.Errorf("dictionary: %s: sentinel %d exceeds %d-bit width", name, ov.Sentinel.Value, w)
		}
	}
	return nil
}

// Names returns the overridden variable names in sorted order.
func (s *Store) Names() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.vars))
	for name := range s.vars {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (s *Store) IsEmpty() bool {
	if s == nil {
		return true
	}
	return len(s.vars) == 0
}
