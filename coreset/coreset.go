// Package coreset implements a small set of CPU core numbers with the
// comma/range string representation the cpuset controller's
// cpuset.cpus / cpuset.mems interface files use (e.g. "0,2-4,9").
package coreset

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Set is an immutable-by-convention set of core numbers. Its combining
// methods (Union, Sub) return a new Set rather than mutating the receiver,
// mirroring the teacher's idset.Set usage in its partition/reservation
// bookkeeping.
type Set struct {
	m map[int]struct{}
}

// New returns a Set containing the given core numbers.
func New(cores ...int) *Set {
	s := &Set{m: make(map[int]struct{}, len(cores))}
	for _, c := range cores {
		s.m[c] = struct{}{}
	}
	return s
}

// Empty returns an empty Set.
func Empty() *Set { return New() }

// Range returns a Set containing every integer in [0, n).
func Range(n int) *Set {
	s := &Set{m: make(map[int]struct{}, n)}
	for i := 0; i < n; i++ {
		s.m[i] = struct{}{}
	}
	return s
}

// Size returns the number of cores in the set.
func (s *Set) Size() int { return len(s.m) }

// IsEmpty reports whether the set has no members.
func (s *Set) IsEmpty() bool { return len(s.m) == 0 }

// Contains reports whether core is a member.
func (s *Set) Contains(core int) bool {
	_, ok := s.m[core]
	return ok
}

// ContainsAny reports whether any member of other is in s.
func (s *Set) ContainsAny(other *Set) bool {
	for c := range other.m {
		if s.Contains(c) {
			return true
		}
	}
	return false
}

// IsSupersetOf reports whether every member of other is in s.
func (s *Set) IsSupersetOf(other *Set) bool {
	for c := range other.m {
		if !s.Contains(c) {
			return false
		}
	}
	return true
}

// Equal reports whether s and other contain exactly the same cores.
func (s *Set) Equal(other *Set) bool {
	if len(s.m) != len(other.m) {
		return false
	}
	return s.IsSupersetOf(other)
}

// Union returns a new Set containing the members of both s and other.
func (s *Set) Union(other *Set) *Set {
	out := New(s.ToSlice()...)
	for c := range other.m {
		out.m[c] = struct{}{}
	}
	return out
}

// Sub returns a new Set containing the members of s that are not in other.
func (s *Set) Sub(other *Set) *Set {
	out := &Set{m: make(map[int]struct{}, len(s.m))}
	for c := range s.m {
		if !other.Contains(c) {
			out.m[c] = struct{}{}
		}
	}
	return out
}

// ToSlice returns the set's members in ascending order.
func (s *Set) ToSlice() []int {
	out := make([]int, 0, len(s.m))
	for c := range s.m {
		out = append(out, c)
	}
	sort.Ints(out)
	return out
}

// String renders the set in the comma+range form the kernel expects for
// cpuset.cpus / cpuset.mems, e.g. "0,2-4,9".
func (s *Set) String() string {
	cores := s.ToSlice()
	if len(cores) == 0 {
		return ""
	}

	var b strings.Builder
	start := cores[0]
	prev := cores[0]
	flush := func(end int) {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		if start == end {
			fmt.Fprintf(&b, "%d", start)
		} else {
			fmt.Fprintf(&b, "%d-%d", start, end)
		}
	}
	for _, c := range cores[1:] {
		if c == prev+1 {
			prev = c
			continue
		}
		flush(prev)
		start, prev = c, c
	}
	flush(prev)
	return b.String()
}

// Parse parses the kernel's comma+range cpuset format, e.g. "0,2-4,9".
// An empty string parses to an empty set.
func Parse(s string) (*Set, error) {
	out := Empty()
	s = strings.TrimSpace(s)
	if s == "" {
		return out, nil
	}
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		if i := strings.IndexByte(field, '-'); i >= 0 {
			lo, err := strconv.Atoi(field[:i])
			if err != nil {
				return nil, fmt.Errorf("coreset: invalid range %q: %w", field, err)
			}
			hi, err := strconv.Atoi(field[i+1:])
			if err != nil {
				return nil, fmt.Errorf("coreset: invalid range %q: %w", field, err)
			}
			if hi < lo {
				return nil, fmt.Errorf("coreset: invalid range %q: end before start", field)
			}
			for c := lo; c <= hi; c++ {
				out.m[c] = struct{}{}
			}
			continue
		}
		v, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("coreset: invalid core %q: %w", field, err)
		}
		out.m[v] = struct{}{}
	}
	return out, nil
}
