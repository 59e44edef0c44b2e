// Error taxonomy for the extraction engine.  Errors are wrapped with context by the code that
// detects them; callers test with errors.Is.
//
//  - OutOfRangeErr: predecessor sample requested before the first sample.  Fails the enclosing tag
//    extraction only.
//  - PhaseNotFoundErr: the run has no timestamp for the phase a tag is bound to.  The tag is
//    skipped for the run.
//  - NoActivityWindowErr: no integration window could be found.  The integrated tag is skipped for
//    the run.
//  - DuplicateRunErr: a row was appended for a run already in the table.  Internal consistency
//    fault, aborts the run loop without persisting.
//  - MissingChannelErr, ShapeErr, BadSeriesErr: the channel data for a run are unusable.  The run
//    is not processed.

package errs

import (
	"errors"
)

var (
	// MT: Constant after initialization; immutable
	OutOfRangeErr       = errors.New("Sample time before start of series")
	PhaseNotFoundErr    = errors.New("Phase timestamp not found")
	NoActivityWindowErr = errors.New("No activity window")
	DuplicateRunErr     = errors.New("Run already present in table")
	MissingChannelErr   = errors.New("Missing channel")
	ShapeErr            = errors.New("Bad channel shape")
	BadSeriesErr        = errors.New("Bad time series")
	BadSnapshotErr      = errors.New("Bad snapshot")
)
