// A Series is the record of one instrument channel: an ordered sequence of (timestamp, value)
// pairs where the value is either a scalar or a fixed-width vector of floats.  Timestamps are epoch
// seconds and strictly increasing.
//
// Series are immutable once constructed.  Slices returned from accessors are shared with the
// series and must not be modified.

package timeseries

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"sort"

	"ecloudframes/errs"
)

type Series struct {
	times  []float64
	values [][]float64
	width  int
	scalar bool
}

// Construct a scalar series.  The inputs are copied and sorted by time; a repeated or non-finite
// timestamp is an error.
func NewScalar(times, values []float64) (*Series, error) {
	if len(times) != len(values) {
		return nil, fmt.Errorf("%w: %d timestamps but %d values", errs.BadSeriesErr, len(times), len(values))
	}
	vs := make([][]float64, len(values))
	for i, v := range values {
		vs[i] = []float64{v}
	}
	return build(times, vs, 1, true)
}

// Construct a vector series where every value has the same width.  The inputs are copied and
// sorted by time as for NewScalar.
func NewVector(times []float64, values [][]float64) (*Series, error) {
	if len(times) != len(values) {
		return nil, fmt.Errorf("%w: %d timestamps but %d values", errs.BadSeriesErr, len(times), len(values))
	}
	width := 0
	if len(values) > 0 {
		width = len(values[0])
	}
	vs := make([][]float64, len(values))
	for i, v := range values {
		if len(v) != width {
			return nil, fmt.Errorf("%w: value %d has width %d, expected %d", errs.ShapeErr, i, len(v), width)
		}
		vs[i] = slices.Clone(v)
	}
	return build(times, vs, width, false)
}

func build(times []float64, values [][]float64, width int, scalar bool) (*Series, error) {
	for _, t := range times {
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil, fmt.Errorf("%w: non-finite timestamp", errs.BadSeriesErr)
		}
	}
	ix := make([]int, len(times))
	for i := range ix {
		ix[i] = i
	}
	slices.SortStableFunc(ix, func(a, b int) int {
		return cmp.Compare(times[a], times[b])
	})
	s := &Series{
		times:  make([]float64, len(times)),
		values: make([][]float64, len(times)),
		width:  width,
		scalar: scalar,
	}
	for i, j := range ix {
		s.times[i] = times[j]
		s.values[i] = values[j]
		if i > 0 && s.times[i] == s.times[i-1] {
			return nil, fmt.Errorf("%w: duplicate timestamp %v", errs.BadSeriesErr, s.times[i])
		}
	}
	return s, nil
}

func (s *Series) Len() int {
	return len(s.times)
}

func (s *Series) IsScalar() bool {
	return s.scalar
}

// Width of each value, 1 for scalar series.
func (s *Series) Width() int {
	return s.width
}

func (s *Series) Times() []float64 {
	return s.times
}

func (s *Series) Time(i int) float64 {
	return s.times[i]
}

func (s *Series) Value(i int) []float64 {
	return s.values[i]
}

// Index of the sample with the largest timestamp <= t.  This is a binary search.
func (s *Series) NearestOlderIndex(t float64) (int, error) {
	if math.IsNaN(t) {
		return -1, fmt.Errorf("%w: NaN", errs.OutOfRangeErr)
	}
	// First index with a timestamp > t, the predecessor is just before it.
	i := sort.Search(len(s.times), func(i int) bool { return s.times[i] > t }) - 1
	if i < 0 {
		if len(s.times) == 0 {
			return -1, fmt.Errorf("%w: empty series", errs.OutOfRangeErr)
		}
		return -1, fmt.Errorf("%w: %v < %v", errs.OutOfRangeErr, t, s.times[0])
	}
	return i, nil
}

// The value at the largest timestamp <= t.
func (s *Series) NearestOlderSample(t float64) ([]float64, error) {
	i, err := s.NearestOlderIndex(t)
	if err != nil {
		return nil, err
	}
	return s.values[i], nil
}

// The scalar value at the largest timestamp <= t.  The series must be scalar.
func (s *Series) NearestOlderScalar(t float64) (float64, error) {
	if !s.scalar {
		return 0, fmt.Errorf("%w: scalar sample from vector series", errs.ShapeErr)
	}
	i, err := s.NearestOlderIndex(t)
	if err != nil {
		return 0, err
	}
	return s.values[i][0], nil
}

// Reduce a series whose values are one-element vectors to a scalar series.  A series that is
// already scalar is returned as is, so applying the reduction a second time is harmless.
func (s *Series) Flatten() (*Series, error) {
	if s.scalar {
		return s, nil
	}
	if s.width != 1 && len(s.times) > 0 {
		return nil, fmt.Errorf("%w: cannot flatten width %d", errs.ShapeErr, s.width)
	}
	return &Series{times: s.times, values: s.values, width: 1, scalar: true}, nil
}

// The samples strictly inside the open interval (lo, hi), sharing storage with s.
func (s *Series) Between(lo, hi float64) *Series {
	first := sort.Search(len(s.times), func(i int) bool { return s.times[i] > lo })
	limit := sort.Search(len(s.times), func(i int) bool { return s.times[i] >= hi })
	if limit < first {
		limit = first
	}
	return &Series{
		times:  s.times[first:limit],
		values: s.values[first:limit],
		width:  s.width,
		scalar: s.scalar,
	}
}

// Integrate a scalar series over time with the trapezoidal rule.  With fewer than two samples the
// integral is zero.
func (s *Series) Trapezoid() (float64, error) {
	if !s.scalar {
		return 0, fmt.Errorf("%w: cannot integrate vector series", errs.ShapeErr)
	}
	var sum float64
	for i := 1; i < len(s.times); i++ {
		sum += 0.5 * (s.values[i][0] + s.values[i-1][0]) * (s.times[i] - s.times[i-1])
	}
	return sum, nil
}
