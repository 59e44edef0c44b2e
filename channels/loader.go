package channels

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"runtime"
	"sync"

	"ecloudframes/catalog"
	. "ecloudframes/common"
	"ecloudframes/errs"
	"ecloudframes/timeseries"
)

// A Loader materializes the raw channels for a run.  A failure is fatal for the run.
type Loader interface {
	Load(ctx context.Context, rec *catalog.RunRecord) (Raw, error)
}

// FileLoader reads the per-run channel files from the run's location (its data folder):
//
//   fill_basic_data_json/basic_data_fill_<run>.json
//   fill_bunchbybunch_data_json/bunchbybunch_data_fill_<run>.json
//   fill_heatload_data_json/heatloads_fill_<run>.json
//
// Each file is a JSON object mapping channel names to {"timestamps": [...], "values": [...]} where
// the values are all numbers (a scalar channel) or all arrays of numbers of the same length (a
// per-slot channel).  The channels of all files are merged; a channel present in more than one file
// is an error.  The files are read concurrently by the shared reader goroutines.

type FileLoader struct {
	Verbose bool
}

var _ Loader = (*FileLoader)(nil)

var channelFilePatterns = []string{
	"fill_basic_data_json/basic_data_fill_%d.json",
	"fill_bunchbybunch_data_json/bunchbybunch_data_fill_%d.json",
	"fill_heatload_data_json/heatloads_fill_%d.json",
}

func ChannelFilenames(rec *catalog.RunRecord) []string {
	names := make([]string, len(channelFilePatterns))
	for i, p := range channelFilePatterns {
		names[i] = path.Join(rec.Location, fmt.Sprintf(p, rec.Run))
	}
	return names
}

///////////////////////////////////////////////////////////////////////////////////////////////////
//
// Reader goroutines.
//
// A readRequest is posted on readRequests when a file needs to be read and decoded.  A readResult
// is always returned on the request's results channel, which must have room for it so that readers
// never block on an abandoned request.

type readRequest struct {
	filename string
	results  chan<- readResult
}

type readResult struct {
	filename string
	data     Raw
	err      error
}

var (
	// MT: Constant after initialization; thread-safe
	readRequests = make(chan readRequest, 100)
	startReaders sync.Once
)

func readers() {
	workers := runtime.NumCPU()
	for i := 0; i < workers; i++ {
		go func() {
			for request := range readRequests {
				data, err := ReadChannelFile(request.filename)
				request.results <- readResult{request.filename, data, err}
			}
		}()
	}
}

func (fl *FileLoader) Load(ctx context.Context, rec *catalog.RunRecord) (Raw, error) {
	startReaders.Do(readers)

	files := ChannelFilenames(rec)
	results := make(chan readResult, len(files))
	for _, fn := range files {
		select {
		case readRequests <- readRequest{filename: fn, results: results}:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	merged := make(Raw)
	var es []error
	for range files {
		var res readResult
		select {
		case res = <-results:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if res.err != nil {
			es = append(es, res.err)
			continue
		}
		if fl.Verbose {
			Log.Infof("Run %d: %d channels from %s", rec.Run, len(res.data), res.filename)
		}
		for name, s := range res.data {
			if _, found := merged[name]; found {
				es = append(es, fmt.Errorf("%w: channel %s appears in several files", errs.BadSeriesErr, name))
				continue
			}
			merged[name] = s
		}
	}
	if len(es) > 0 {
		return nil, fmt.Errorf("Run %d: failed to load channels: %w", rec.Run, errors.Join(es...))
	}
	return merged, nil
}

type channelRepr struct {
	Timestamps []float64       `json:"timestamps"`
	Values     json.RawMessage `json:"values"`
}

func ReadChannelFile(filename string) (Raw, error) {
	bytes, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return DecodeChannels(bytes)
}

func DecodeChannels(bytes []byte) (Raw, error) {
	var repr map[string]channelRepr
	if err := json.Unmarshal(bytes, &repr); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.BadSeriesErr, err)
	}
	result := make(Raw, len(repr))
	for name, c := range repr {
		s, err := decodeSeries(c)
		if err != nil {
			return nil, fmt.Errorf("Channel %s: %w", name, err)
		}
		result[name] = s
	}
	return result, nil
}

func decodeSeries(c channelRepr) (*timeseries.Series, error) {
	if len(c.Values) == 0 || string(c.Values) == "null" {
		return timeseries.NewScalar(c.Timestamps, nil)
	}
	var scalars []float64
	if err := json.Unmarshal(c.Values, &scalars); err == nil {
		return timeseries.NewScalar(c.Timestamps, scalars)
	}
	var vectors [][]float64
	if err := json.Unmarshal(c.Values, &vectors); err == nil {
		return timeseries.NewVector(c.Timestamps, vectors)
	}
	return nil, fmt.Errorf("%w: values are neither numbers nor arrays of numbers", errs.ShapeErr)
}
