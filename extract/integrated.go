package extract

import (
	"fmt"

	"ecloudframes/channels"
	"ecloudframes/store"
	"ecloudframes/timeseries"
)

const (
	ImpedanceFeature   = "impedance_hl_halfcell"
	SynchrotronFeature = "sr_hl_halfcell"
	StartFeature       = "t_start"
	StopFeature        = "t_stop"
	DurationFeature    = "duration"
)

// Build the integrated row: the activity window of the run from the per-slot intensities of both
// beams, and the integral of each heat load and modeled loss over the samples strictly inside the
// window.  The row's timestamp is the window start.  Without a window the result is
// NoActivityWindowErr.
func (x *Extractor) Integrated(b *channels.Bundle) (store.Row, error) {
	w, err := x.Window.Detect(b.BunchIntensity[0], b.BunchIntensity[1])
	if err != nil {
		return nil, err
	}
	integrate := func(s *timeseries.Series) (float64, error) {
		return s.Between(w.Start, w.Stop).Trapezoid()
	}

	row := store.Row{
		store.TimestampFeature: store.Float(w.Start),
		StartFeature:           store.Float(w.Start),
		StopFeature:            store.Float(w.Stop),
		DurationFeature:        store.Float(w.Duration()),
	}
	for _, name := range b.HeatLoadNames {
		v, err := integrate(b.HeatLoads[name])
		if err != nil {
			return nil, fmt.Errorf("Heat load %s: %w", name, err)
		}
		row[name] = store.Float(v)
	}
	imp, err := integrate(b.ImpedanceLoss)
	if err != nil {
		return nil, fmt.Errorf("Impedance loss: %w", err)
	}
	sr, err := integrate(b.SynchrotronLoss)
	if err != nil {
		return nil, fmt.Errorf("Synchrotron loss: %w", err)
	}
	row[ImpedanceFeature] = store.Float(imp * x.HalfCellLength)
	row[SynchrotronFeature] = store.Float(sr * x.HalfCellLength)
	return row, nil
}
