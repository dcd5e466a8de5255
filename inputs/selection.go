package inputs

import (
	"sort"
	"strconv"
	"strings"

	tterrors "github.com/tth-analysis/tthrun/errors"
)

const Wildcard = "*"

// Selection is the finite set of file indices held by a secondary storage
// location. A nil Selection matches nothing.
type Selection map[int]struct{}

func NewSelection(indices ...int) Selection {
	s := make(Selection, len(indices))
	for _, idx := range indices {
		s[idx] = struct{}{}
	}
	return s
}

// ParseSelection reads the catalog notation: "*" for all remaining indices
// (returned as a nil Selection with wildcard set), or a comma separated list
// of positive indices.
func ParseSelection(in string) (sel Selection, wildcard bool, err error) {
	in = strings.TrimSpace(in)
	if in == Wildcard {
		return nil, true, nil
	}
	if in == "" {
		return nil, false, tterrors.NewInvalidConfiguration("selection", "empty selection, use %q for all files", Wildcard)
	}

	sel = make(Selection)
	for _, token := range strings.Split(in, ",") {
		token = strings.TrimSpace(token)
		idx, err := strconv.Atoi(token)
		if err != nil || idx <= 0 {
			return nil, false, tterrors.NewInvalidConfiguration("selection", "%q is not a positive file index", token)
		}
		sel[idx] = struct{}{}
	}
	return sel, false, nil
}

func (s Selection) Contains(idx int) bool {
	_, found := s[idx]
	return found
}

func (s Selection) Sorted() []int {
	out := make([]int, 0, len(s))
	for idx := range s {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

func (s Selection) String() string {
	var parts []string
	for _, idx := range s.Sorted() {
		parts = append(parts, strconv.Itoa(idx))
	}
	return strings.Join(parts, ",")
}
