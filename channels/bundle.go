// A Bundle holds the channels of exactly one run, grouped by physical meaning.  Bundles are built
// fresh for every run and dropped when the run is done, nothing is shared between runs.

package channels

import (
	"errors"
	"fmt"

	"ecloudframes/config"
	"ecloudframes/errs"
	"ecloudframes/timeseries"
)

// Raw channels as delivered by a Loader, keyed by channel name.
type Raw map[string]*timeseries.Series

type Bundle struct {
	Run int64

	// Index 0 is beam 1, index 1 is beam 2.
	BeamIntensity  [2]*timeseries.Series // scalar, total intensity
	BunchIntensity [2]*timeseries.Series // vector, per slot
	BunchLength    [2]*timeseries.Series // vector, per slot, same width as BunchIntensity

	// Modeled losses per unit length, always scalar.
	ImpedanceLoss   *timeseries.Series
	SynchrotronLoss *timeseries.Series

	// Heat load channels in configuration order.
	HeatLoadNames []string
	HeatLoads     map[string]*timeseries.Series
}

// Select and check the channels the configuration requires from raw.  The modeled-loss channels
// are reduced from their nested per-sample shape to scalar series here, once per run.  Extra
// channels in raw are ignored.

func NewBundle(run int64, cfg *config.Config, raw Raw) (*Bundle, error) {
	var es []error
	get := func(name string) *timeseries.Series {
		s := raw[name]
		if s == nil {
			es = append(es, fmt.Errorf("%w: %s", errs.MissingChannelErr, name))
		}
		return s
	}
	scalar := func(name string) *timeseries.Series {
		s := get(name)
		if s != nil && !s.IsScalar() {
			es = append(es, fmt.Errorf("%w: %s must be scalar", errs.ShapeErr, name))
		}
		return s
	}
	vector := func(name string) *timeseries.Series {
		s := get(name)
		if s != nil && s.IsScalar() {
			es = append(es, fmt.Errorf("%w: %s must be per-slot", errs.ShapeErr, name))
		}
		return s
	}
	flat := func(name string) *timeseries.Series {
		s := get(name)
		if s == nil {
			return nil
		}
		f, err := s.Flatten()
		if err != nil {
			es = append(es, fmt.Errorf("%s: %w", name, err))
		}
		return f
	}

	ch := &cfg.Channels
	b := &Bundle{
		Run:           run,
		HeatLoadNames: cfg.HeatLoadChannels,
		HeatLoads:     make(map[string]*timeseries.Series, len(cfg.HeatLoadChannels)),
	}
	for beam := 0; beam < 2; beam++ {
		b.BeamIntensity[beam] = scalar(ch.BeamIntensity[beam])
		b.BunchIntensity[beam] = vector(ch.BunchIntensity[beam])
		b.BunchLength[beam] = vector(ch.BunchLength[beam])
	}
	b.ImpedanceLoss = flat(ch.ImpedanceLoss)
	b.SynchrotronLoss = flat(ch.SynchrotronLoss)
	for _, name := range cfg.HeatLoadChannels {
		b.HeatLoads[name] = scalar(name)
	}
	if len(es) > 0 {
		return nil, errors.Join(es...)
	}

	// The filled-slot mask derived from intensity is applied to the lengths, so the slot counts must
	// agree.
	for beam := 0; beam < 2; beam++ {
		bi, bl := b.BunchIntensity[beam], b.BunchLength[beam]
		if bi.Len() > 0 && bl.Len() > 0 && bi.Width() != bl.Width() {
			es = append(es, fmt.Errorf("%w: beam %d has %d intensity slots but %d length slots",
				errs.ShapeErr, beam+1, bi.Width(), bl.Width()))
		}
	}
	if len(es) > 0 {
		return nil, errors.Join(es...)
	}
	return b, nil
}
