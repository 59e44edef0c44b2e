// Feature extraction: turn one run's channel bundle into one row per tag.
//
// Instant tags sample every channel at a phase timestamp of the run with predecessor sampling.
// The integrated tag integrates the heat loads over the run's activity window.
//
// Extraction never panics and never returns a bare error to the run loop.  Every attempt yields an
// Outcome that says whether the tag produced a row or was skipped, and why.

package extract

import (
	"fmt"

	"ecloudframes/catalog"
	"ecloudframes/channels"
	"ecloudframes/config"
	"ecloudframes/store"
	"ecloudframes/window"
)

type Status int

const (
	Extracted Status = iota
	Skipped
)

func (s Status) String() string {
	if s == Extracted {
		return "extracted"
	}
	return "skipped"
}

// The result of extracting one tag for one run.  Row is set iff Status is Extracted, Reason iff
// Status is Skipped.  A skipped tag leaves the run unprocessed for that tag, to be retried later.
type Outcome struct {
	Tag    config.Tag
	Status Status
	Row    store.Row
	Reason error
}

func extracted(tag config.Tag, row store.Row) Outcome {
	return Outcome{Tag: tag, Status: Extracted, Row: row}
}

func skipped(tag config.Tag, reason error) Outcome {
	return Outcome{Tag: tag, Status: Skipped, Reason: reason}
}

type Extractor struct {
	BunchThreshold float64
	HalfCellLength float64
	Window         window.Detector
}

func New(cfg *config.Config) *Extractor {
	return &Extractor{
		BunchThreshold: cfg.BunchIntensityThreshold,
		HalfCellLength: cfg.HalfCellLength,
		Window:         window.Detector{Threshold: cfg.WindowIntensityThreshold},
	}
}

// Extract one tag.  The bundle must belong to the run.
func (x *Extractor) Extract(tag config.Tag, rec *catalog.RunRecord, b *channels.Bundle) Outcome {
	var (
		row store.Row
		err error
	)
	switch tag.Kind {
	case config.InstantTag:
		row, err = x.Instant(rec, tag.Phase, b)
	case config.IntegratedTag:
		row, err = x.Integrated(b)
	default:
		err = fmt.Errorf("Unknown tag kind %d", tag.Kind)
	}
	if err != nil {
		return skipped(tag, err)
	}
	return extracted(tag, row)
}
