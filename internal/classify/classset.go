package classify

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ClassSet is a set of model category ids.
type ClassSet map[int]struct{}

// NewClassSet returns a set holding ids.
func NewClassSet(ids ...int) ClassSet {
	s := make(ClassSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// MaxClassID bounds the ids ParseClassSet accepts. Label maps of common
// detection and classification models stay well below it.
const MaxClassID = 4095

// ParseClassSet parses a comma-separated list of ids and inclusive ranges,
// e.g. "1,17-18" or "153-277".
func ParseClassSet(spec string) (ClassSet, error) {
	s := ClassSet{}
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		start, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, fmt.Errorf("class set: bad id %q", part)
		}
		end := start
		if isRange {
			end, err = strconv.Atoi(strings.TrimSpace(hi))
			if err != nil {
				return nil, fmt.Errorf("class set: bad range %q", part)
			}
		}
		if start < 0 || end < start {
			return nil, fmt.Errorf("class set: bad range %q", part)
		}
		if end > MaxClassID {
			return nil, fmt.Errorf("class set: id in %q exceeds %d", part, MaxClassID)
		}
		for id := start; id <= end; id++ {
			s[id] = struct{}{}
		}
	}
	if len(s) == 0 {
		return nil, fmt.Errorf("class set: no ids in %q", spec)
	}
	return s, nil
}

// Contains reports whether id is in the set.
func (s ClassSet) Contains(id int) bool {
	_, ok := s[id]
	return ok
}

// String renders the set in the form accepted by ParseClassSet.
func (s ClassSet) String() string {
	ids := make([]int, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var parts []string
	for i := 0; i < len(ids); {
		j := i
		for j+1 < len(ids) && ids[j+1] == ids[j]+1 {
			j++
		}
		if i == j {
			parts = append(parts, strconv.Itoa(ids[i]))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", ids[i], ids[j]))
		}
		i = j + 1
	}
	return strings.Join(parts, ",")
}
