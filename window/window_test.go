package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecloudframes/errs"
	"ecloudframes/timeseries"
)

func slots(t *testing.T, times []float64, occupied []int) *timeseries.Series {
	values := make([][]float64, len(occupied))
	for i, n := range occupied {
		v := make([]float64, 6)
		for j := 0; j < n; j++ {
			v[j] = 1e11
		}
		values[i] = v
	}
	s, err := timeseries.NewVector(times, values)
	require.NoError(t, err)
	return s
}

func TestDetect(t *testing.T) {
	d := Detector{Threshold: 1e10}
	b1 := slots(t, []float64{0, 10, 20, 30, 40, 50}, []int{0, 2, 3, 6, 3, 1})
	b2 := slots(t, []float64{5, 15, 25, 35, 45}, []int{3, 0, 0, 4, 2})

	w, err := d.Detect(b1)
	require.NoError(t, err)
	assert.Equal(t, Window{Start: 20, Stop: 40}, w)

	w, err = d.Detect(b1, b2)
	require.NoError(t, err)
	assert.Equal(t, Window{Start: 5, Stop: 40}, w)
	assert.Equal(t, 35.0, w.Duration())
	assert.LessOrEqual(t, w.Start, w.Stop)
}

func TestDetectSingleActiveInstant(t *testing.T) {
	d := Detector{Threshold: 1e10}
	w, err := d.Detect(slots(t, []float64{1, 2, 3}, []int{0, 5, 0}))
	require.NoError(t, err)
	assert.Equal(t, Window{Start: 2, Stop: 2}, w)
}

func TestDetectThresholdIsStrict(t *testing.T) {
	s, err := timeseries.NewVector([]float64{1}, [][]float64{{1e10, 1e10, 1e10, 1e10}})
	require.NoError(t, err)
	_, err = Detector{Threshold: 1e10}.Detect(s)
	assert.ErrorIs(t, err, errs.NoActivityWindowErr)

	w, err := Detector{Threshold: 1e10 - 1}.Detect(s)
	require.NoError(t, err)
	assert.Equal(t, 1.0, w.Start)
}

func TestDetectNoActivity(t *testing.T) {
	d := Detector{Threshold: 1e10}
	good := slots(t, []float64{0, 1}, []int{4, 4})
	idle := slots(t, []float64{0, 1}, []int{2, 1})
	_, err := d.Detect(good, idle)
	assert.ErrorIs(t, err, errs.NoActivityWindowErr)

	empty, err := timeseries.NewVector(nil, nil)
	require.NoError(t, err)
	_, err = d.Detect(empty)
	assert.ErrorIs(t, err, errs.NoActivityWindowErr)

	_, err = d.Detect()
	assert.ErrorIs(t, err, errs.NoActivityWindowErr)
}
