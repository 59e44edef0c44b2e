package extract

import (
	"fmt"
	"math"

	"ecloudframes/catalog"
	"ecloudframes/channels"
	"ecloudframes/errs"
	"ecloudframes/store"
)

// What one beam looks like at one instant.  Filled is computed once from BunchIntensity and is the
// only mask used for both the intensity and the length statistics.
type BeamSnapshot struct {
	Intensity      float64
	BunchIntensity []float64
	BunchLength    []float64
	Filled         []bool
}

func (bs *BeamSnapshot) NumFilled() int {
	n := 0
	for _, f := range bs.Filled {
		if f {
			n++
		}
	}
	return n
}

// Sample beam (0 or 1) at time t.  A slot is filled when its intensity is strictly above the
// threshold.
func (x *Extractor) SampleBeam(b *channels.Bundle, beam int, t float64) (*BeamSnapshot, error) {
	intensity, err := b.BeamIntensity[beam].NearestOlderScalar(t)
	if err != nil {
		return nil, fmt.Errorf("Beam %d intensity: %w", beam+1, err)
	}
	bunches, err := b.BunchIntensity[beam].NearestOlderSample(t)
	if err != nil {
		return nil, fmt.Errorf("Beam %d bunch intensity: %w", beam+1, err)
	}
	lengths, err := b.BunchLength[beam].NearestOlderSample(t)
	if err != nil {
		return nil, fmt.Errorf("Beam %d bunch length: %w", beam+1, err)
	}
	if len(lengths) != len(bunches) {
		return nil, fmt.Errorf("%w: beam %d has %d intensity slots but %d length slots",
			errs.ShapeErr, beam+1, len(bunches), len(lengths))
	}
	filled := make([]bool, len(bunches))
	for i, v := range bunches {
		filled[i] = v > x.BunchThreshold
	}
	return &BeamSnapshot{
		Intensity:      intensity,
		BunchIntensity: bunches,
		BunchLength:    lengths,
		Filled:         filled,
	}, nil
}

// Build the instant row for the named phase of the run.  A run without the phase yields
// PhaseNotFoundErr; a phase earlier than the first sample of any channel yields OutOfRangeErr.
func (x *Extractor) Instant(rec *catalog.RunRecord, phase string, b *channels.Bundle) (store.Row, error) {
	t, found := rec.Phase(phase)
	if !found {
		return nil, fmt.Errorf("%w: run %d has no %s", errs.PhaseNotFoundErr, rec.Run, phase)
	}

	row := store.Row{store.TimestampFeature: store.Float(t)}
	for beam := 0; beam < 2; beam++ {
		bs, err := x.SampleBeam(b, beam, t)
		if err != nil {
			return nil, err
		}
		bs.addTo(row, beam+1)
	}

	for _, name := range b.HeatLoadNames {
		v, err := b.HeatLoads[name].NearestOlderScalar(t)
		if err != nil {
			return nil, fmt.Errorf("Heat load %s: %w", name, err)
		}
		row[name] = store.Float(v)
	}

	imp, err := b.ImpedanceLoss.NearestOlderScalar(t)
	if err != nil {
		return nil, fmt.Errorf("Impedance loss: %w", err)
	}
	sr, err := b.SynchrotronLoss.NearestOlderScalar(t)
	if err != nil {
		return nil, fmt.Errorf("Synchrotron loss: %w", err)
	}
	row[ImpedanceFeature] = store.Float(imp * x.HalfCellLength)
	row[SynchrotronFeature] = store.Float(sr * x.HalfCellLength)

	return row, nil
}

func (bs *BeamSnapshot) addTo(row store.Row, beam int) {
	intensity := fmt.Sprintf("bunch_intensity_b%d", beam)
	length := fmt.Sprintf("bunch_length_b%d", beam)

	row[fmt.Sprintf("intensity_b%d", beam)] = store.Float(bs.Intensity)
	row[fmt.Sprintf("n_bunches_b%d", beam)] = store.Int(int64(bs.NumFilled()))
	row[intensity] = store.Vector(bs.BunchIntensity)
	row[length] = store.Vector(bs.BunchLength)

	// An empty mask has no statistics, the columns are simply absent from the row.
	if st, ok := maskedStats(bs.BunchIntensity, bs.Filled); ok {
		row[intensity+"_mean"] = store.Float(st.mean)
		row[intensity+"_std"] = store.Float(st.std)
	}
	if st, ok := maskedStats(bs.BunchLength, bs.Filled); ok {
		row[length+"_mean"] = store.Float(st.mean)
		row[length+"_std"] = store.Float(st.std)
		row[length+"_min"] = store.Float(st.min)
		row[length+"_max"] = store.Float(st.max)
	}
}

type stats struct {
	mean, std, min, max float64
}

// Statistics of xs restricted to the slots where mask is true.  std is the population deviation.
func maskedStats(xs []float64, mask []bool) (stats, bool) {
	var (
		n   int
		sum float64
		st  = stats{min: math.Inf(1), max: math.Inf(-1)}
	)
	for i, x := range xs {
		if !mask[i] {
			continue
		}
		n++
		sum += x
		st.min = min(st.min, x)
		st.max = max(st.max, x)
	}
	if n == 0 {
		return stats{}, false
	}
	st.mean = sum / float64(n)
	var sq float64
	for i, x := range xs {
		if mask[i] {
			d := x - st.mean
			sq += d * d
		}
	}
	st.std = math.Sqrt(sq / float64(n))
	return st, true
}
