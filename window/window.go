// Detection of the integration window of a run.
//
// For each beam, the per-slot intensity is scanned forward from the first sample for the first
// instant where more than two slots are above the threshold, and backward from the last sample for
// the last such instant.  The window runs from the earliest start to the latest stop over the
// beams.  Every beam must have at least one such instant.

package window

import (
	"fmt"

	"ecloudframes/errs"
	"ecloudframes/timeseries"
)

// An instant counts as active when strictly more than this many slots are above the threshold.
const minOccupiedSlots = 2

type Window struct {
	Start float64
	Stop  float64
}

func (w Window) Duration() float64 {
	return w.Stop - w.Start
}

type Detector struct {
	Threshold float64
}

// Find the window over the per-slot series of all groups.  Both bounds are sample timestamps, and
// Start <= Stop.
func (d Detector) Detect(groups ...*timeseries.Series) (Window, error) {
	if len(groups) == 0 {
		return Window{}, fmt.Errorf("%w: no channels", errs.NoActivityWindowErr)
	}
	var w Window
	for g, s := range groups {
		first := -1
		for i := 0; i < s.Len(); i++ {
			if d.active(s.Value(i)) {
				first = i
				break
			}
		}
		if first < 0 {
			return Window{}, fmt.Errorf("%w: group %d never has more than %d occupied slots",
				errs.NoActivityWindowErr, g+1, minOccupiedSlots)
		}
		last := first
		for i := s.Len() - 1; i > first; i-- {
			if d.active(s.Value(i)) {
				last = i
				break
			}
		}
		start, stop := s.Time(first), s.Time(last)
		if g == 0 || start < w.Start {
			w.Start = start
		}
		if g == 0 || stop > w.Stop {
			w.Stop = stop
		}
	}
	return w, nil
}

func (d Detector) active(slots []float64) bool {
	n := 0
	for _, x := range slots {
		if x > d.Threshold {
			n++
			if n > minOccupiedSlots {
				return true
			}
		}
	}
	return false
}
