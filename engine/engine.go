// The engine brings the store up to date with the catalog.
//
// One pass selects the runs that still have work to do, in ascending run order, and for each run
// loads its channels, extracts every pending tag, appends the extracted rows and persists the store.
// A run's rows are committed together and the snapshot is written before the next run is started,
// so an interrupted pass loses at most the run in progress.
//
// A run that fails (its channels cannot be loaded, or no tag could be extracted) is logged and left
// out of the store, it will be selected again by the next pass.  Only a duplicate run, a failure to
// persist, and cancellation end a pass early.

package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ecloudframes/catalog"
	"ecloudframes/channels"
	. "ecloudframes/common"
	"ecloudframes/config"
	"ecloudframes/errs"
	"ecloudframes/extract"
	"ecloudframes/store"
)

// A committed row, as handed to the Notifier.
type CommittedRow struct {
	Tag string
	Run int64
	Row store.Row
}

// A Notifier is told about the rows of each run after they have been persisted.  Notification
// failures are logged and otherwise ignored, the store is the record.
type Notifier interface {
	Publish(ctx context.Context, pass string, rows []CommittedRow) error
}

type Engine struct {
	cfg       *config.Config
	catalog   catalog.Catalog
	loader    channels.Loader
	store     *store.Store
	extractor *extract.Extractor

	// Optional
	Notifier Notifier
	Metrics  *Metrics
}

// The engine owns st for its lifetime, nothing else may modify it.
func New(cfg *config.Config, cat catalog.Catalog, loader channels.Loader, st *store.Store) *Engine {
	return &Engine{
		cfg:       cfg,
		catalog:   cat,
		loader:    loader,
		store:     st,
		extractor: extract.New(cfg),
	}
}

func (e *Engine) Store() *store.Store {
	return e.store
}

type RunStatus int

const (
	// At least one row was appended and persisted.
	Committed RunStatus = iota

	// Every pending tag was skipped.  The run stays pending.
	NothingToCommit

	// The run's channels could not be loaded or bundled.  The run stays pending.
	Failed
)

func (s RunStatus) String() string {
	switch s {
	case Committed:
		return "committed"
	case NothingToCommit:
		return "nothing-to-commit"
	default:
		return "failed"
	}
}

type RunResult struct {
	Run      int64
	Status   RunStatus
	Outcomes []extract.Outcome // One per pending tag, in configuration order; empty if Failed
	Reason   error             // Only if Failed
}

type Summary struct {
	Selection
	Pass            string
	Processed       int // Runs with at least one committed row
	NothingToCommit int
	Failed          int
	Rows            int
}

func (s *Summary) String() string {
	return fmt.Sprintf(
		"%d runs in catalog, %d blacklisted, %d incomplete, %d missing a required phase, "+
			"%d already done, %d eligible, %d processed, %d with nothing to commit, %d failed, %d rows added",
		s.Catalog, s.Blacklisted, s.Incomplete, s.MissingPhase, s.AlreadyDone, s.Eligible,
		s.Processed, s.NothingToCommit, s.Failed, s.Rows)
}

// Run one pass.  The summary is valid also when an error is returned, it then covers the runs
// handled before the pass stopped.  A cancelled context stops the pass between runs and the error
// is the context's error.
func (e *Engine) Update(ctx context.Context) (*Summary, error) {
	summary := &Summary{
		Selection: e.Select(),
		Pass:      uuid.NewString(),
	}
	e.Metrics.pass()
	Log.Infof("Pass %s: %d eligible runs", summary.Pass, summary.Eligible)

	for _, run := range summary.Runs {
		if err := ctx.Err(); err != nil {
			Log.Infof("Pass %s: cancelled", summary.Pass)
			return summary, err
		}
		rec, _ := e.catalog.Lookup(run)
		then := time.Now()
		result, committed, err := e.processRun(ctx, rec)
		if err != nil {
			return summary, err
		}
		e.Metrics.run(result, time.Since(then))

		switch result.Status {
		case Committed:
			summary.Processed++
			summary.Rows += len(committed)
			Log.Infof("Run %d: committed %d rows", run, len(committed))
			if e.Notifier != nil {
				if err := e.Notifier.Publish(ctx, summary.Pass, committed); err != nil {
					Log.Warningf("Run %d: notification failed: %v", run, err)
				}
			}
		case NothingToCommit:
			summary.NothingToCommit++
			Log.Infof("Run %d: nothing to commit", run)
		case Failed:
			// A failure caused by cancellation is not the run's fault.
			if ctx.Err() != nil {
				Log.Infof("Pass %s: cancelled", summary.Pass)
				return summary, ctx.Err()
			}
			summary.Failed++
			Log.Warningf("Run %d failed: %v", run, result.Reason)
		}
	}

	for _, tag := range e.store.Tags() {
		e.Metrics.tableSize(tag, e.store.Len(tag))
	}
	Log.Infof("Pass %s: %s", summary.Pass, summary)
	return summary, nil
}

// Process one run.  The returned error is fatal for the pass, anything that is only fatal for the
// run is reported in the result.
func (e *Engine) processRun(ctx context.Context, rec *catalog.RunRecord) (*RunResult, []CommittedRow, error) {
	result := &RunResult{Run: rec.Run}
	pending := e.pendingTags(rec)

	raw, err := e.loader.Load(ctx, rec)
	if err != nil {
		result.Status = Failed
		result.Reason = err
		return result, nil, nil
	}
	// The bundle and raw channels go out of scope at return, nothing is carried to the next run.
	bundle, err := channels.NewBundle(rec.Run, e.cfg, raw)
	if err != nil {
		result.Status = Failed
		result.Reason = fmt.Errorf("Run %d: %w", rec.Run, err)
		return result, nil, nil
	}

	var committed []CommittedRow
	for _, tag := range pending {
		o := e.extractor.Extract(tag, rec, bundle)
		result.Outcomes = append(result.Outcomes, o)
		if o.Status == extract.Skipped {
			Log.Warningf("Run %d: skipping tag %s: %v", rec.Run, tag.Name, o.Reason)
			continue
		}
		committed = append(committed, CommittedRow{Tag: tag.Name, Run: rec.Run, Row: o.Row})
	}
	if len(committed) == 0 {
		result.Status = NothingToCommit
		return result, nil, nil
	}

	for _, c := range committed {
		if err := e.store.Append(c.Tag, c.Run, c.Row); err != nil {
			if errors.Is(err, errs.DuplicateRunErr) {
				return result, nil, fmt.Errorf("Internal inconsistency, pass aborted: %w", err)
			}
			return result, nil, err
		}
	}
	if err := e.store.Persist(); err != nil {
		return result, nil, err
	}
	result.Status = Committed
	return result, committed, nil
}
