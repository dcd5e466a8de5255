package partition

import (
	"fmt"
	"strings"

	"go.uber.org/zap/zapcore"
)

// Range is a half-open span of 1-based file indices: [StartIndex, ExclusiveEndIndex).
type Range struct {
	StartIndex        int
	ExclusiveEndIndex int
}

func NewRange(startIndex, exclusiveEndIndex int) *Range {
	if startIndex < 1 || exclusiveEndIndex <= startIndex {
		panic(fmt.Sprintf("invalid file range start %d, end %d", startIndex, exclusiveEndIndex))
	}
	return &Range{startIndex, exclusiveEndIndex}
}

func (r *Range) String() string {
	return fmt.Sprintf("[%d, %d)", r.StartIndex, r.ExclusiveEndIndex)
}

func (r *Range) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt("start_index", r.StartIndex)
	enc.AddInt("end_index", r.ExclusiveEndIndex)
	return nil
}

func (r *Range) Size() int {
	return r.ExclusiveEndIndex - r.StartIndex
}

// Last is the highest index included in the range.
func (r *Range) Last() int {
	return r.ExclusiveEndIndex - 1
}

func (r *Range) Contains(idx int) bool {
	return idx >= r.StartIndex && idx < r.ExclusiveEndIndex
}

func (r *Range) Indices() []int {
	out := make([]int, 0, r.Size())
	for idx := r.StartIndex; idx < r.ExclusiveEndIndex; idx++ {
		out = append(out, idx)
	}
	return out
}

func (r *Range) Equals(other *Range) bool {
	return r.StartIndex == other.StartIndex && r.ExclusiveEndIndex == other.ExclusiveEndIndex
}

type Ranges []*Range

func (r Ranges) String() string {
	var rs []string
	for _, i := range r {
		rs = append(rs, i.String())
	}
	return strings.Join(rs, ",")
}

func (r Ranges) MarshalLogArray(enc zapcore.ArrayEncoder) error {
	for _, rng := range r {
		if err := enc.AppendObject(rng); err != nil {
			return err
		}
	}
	return nil
}

// Total is the number of indices covered by all ranges.
func (r Ranges) Total() (out int) {
	for _, rng := range r {
		out += rng.Size()
	}
	return
}
