// The run catalog maps run numbers to run metadata: whether the run is complete, the timestamps of
// its named phases, and where its channel data are stored.  The engine only reads the catalog.
//
// The on-disk catalog is a `fills_and_bmodes.json` file in each data folder.  It holds a JSON object
// keyed by run number, each value an object with a boolean "complete" and any number of phase
// timestamps in epoch seconds:
//
//   {"8000": {"complete": true, "t_startfill": 1657530210.5, "t_stop_SQUEEZE": 1657535112.0,
//             "t_start_STABLE": null}}
//
// A null or non-numeric phase value means the phase is absent.  When several folders are loaded the
// later folders take precedence, and the run's location is the folder it was found in.

package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"path"
	"slices"
	"strconv"
)

const CatalogFilename = "fills_and_bmodes.json"

// RunRecord is immutable after loading.
type RunRecord struct {
	Run      int64
	Complete bool
	Phases   map[string]float64
	Location string
}

// The timestamp of the named phase.  Unknown phases are absent, not errors.
func (r *RunRecord) Phase(name string) (float64, bool) {
	t, found := r.Phases[name]
	return t, found
}

type Catalog interface {
	// All run numbers in ascending order.
	Runs() []int64

	Lookup(run int64) (*RunRecord, bool)
}

type MapCatalog map[int64]*RunRecord

var _ Catalog = MapCatalog(nil)

func (mc MapCatalog) Runs() []int64 {
	return slices.Sorted(maps.Keys(mc))
}

func (mc MapCatalog) Lookup(run int64) (*RunRecord, bool) {
	r, found := mc[run]
	return r, found
}

// Load and merge the catalogs of the folders, in order.
func LoadFolders(folders []string) (MapCatalog, error) {
	result := make(MapCatalog)
	for _, folder := range folders {
		fn := path.Join(folder, CatalogFilename)
		input, err := os.Open(fn)
		if err != nil {
			return nil, fmt.Errorf("Opening catalog: %w", err)
		}
		mc, err := ReadCatalog(input, folder)
		input.Close()
		if err != nil {
			return nil, fmt.Errorf("Catalog %s: %w", fn, err)
		}
		maps.Copy(result, mc)
	}
	return result, nil
}

func ReadCatalog(input io.Reader, location string) (MapCatalog, error) {
	bytes, err := io.ReadAll(input)
	if err != nil {
		return nil, fmt.Errorf("Reading catalog: %w", err)
	}
	var raw map[string]map[string]json.RawMessage
	if err := json.Unmarshal(bytes, &raw); err != nil {
		return nil, fmt.Errorf("Unmarshaling catalog: %w", err)
	}
	result := make(MapCatalog, len(raw))
	for key, fields := range raw {
		run, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("Bad run number %q", key)
		}
		rec := &RunRecord{
			Run:      run,
			Phases:   make(map[string]float64),
			Location: location,
		}
		for name, value := range fields {
			if name == "complete" {
				if err := json.Unmarshal(value, &rec.Complete); err != nil {
					return nil, fmt.Errorf("Run %d: bad 'complete' field: %w", run, err)
				}
				continue
			}
			// Absent phases are null; anything else non-numeric is annotation and ignored.
			var t *float64
			if json.Unmarshal(value, &t) == nil && t != nil {
				rec.Phases[name] = *t
			}
		}
		result[run] = rec
	}
	return result, nil
}
