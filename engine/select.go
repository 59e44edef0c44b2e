package engine

import (
	"ecloudframes/catalog"
	"ecloudframes/config"
)

// How the catalog's runs were classified.  The categories are checked in field order and each run
// is counted once, in the first category that applies.
type Selection struct {
	Catalog      int
	Blacklisted  int
	Incomplete   int
	MissingPhase int
	AlreadyDone  int
	Eligible     int

	// The eligible runs, ascending
	Runs []int64
}

// Select the runs that have work to do.  This only consults the catalog and the store, no channel
// data are touched.
func (e *Engine) Select() Selection {
	var sel Selection
	for _, run := range e.catalog.Runs() {
		sel.Catalog++
		rec, found := e.catalog.Lookup(run)
		switch {
		case !found:
			continue
		case e.cfg.Blacklist[run]:
			sel.Blacklisted++
		case !rec.Complete:
			sel.Incomplete++
		case !hasPhases(rec.Phases, e.cfg.RequiredPhases):
			sel.MissingPhase++
		case len(e.pendingTags(rec)) == 0:
			sel.AlreadyDone++
		default:
			sel.Eligible++
			sel.Runs = append(sel.Runs, run)
		}
	}
	return sel
}

func hasPhases(phases map[string]float64, required []string) bool {
	for _, p := range required {
		if _, found := phases[p]; !found {
			return false
		}
	}
	return true
}

// The configured tags that have no row for the run and that the run can produce, in configuration
// order.  The record is immutable, so an instant tag whose phase the run never reached will never
// have a row and does not keep the run pending.
func (e *Engine) pendingTags(rec *catalog.RunRecord) []config.Tag {
	var tags []config.Tag
	for _, t := range e.cfg.Tags {
		if t.Kind == config.InstantTag {
			if _, found := rec.Phase(t.Phase); !found {
				continue
			}
		}
		if !e.store.Contains(t.Name, rec.Run) {
			tags = append(tags, t)
		}
	}
	return tags
}
