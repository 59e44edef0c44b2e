package channels

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecloudframes/catalog"
	"ecloudframes/config"
	"ecloudframes/errs"
	"ecloudframes/timeseries"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.HeatLoadChannels = []string{"HL1", "HL2"}
	cfg.Channels = config.Channels{
		BeamIntensity:   [2]string{"BCT1", "BCT2"},
		BunchIntensity:  [2]string{"FBCT1", "FBCT2"},
		BunchLength:     [2]string{"BQM1", "BQM2"},
		ImpedanceLoss:   "IMP",
		SynchrotronLoss: "SR",
	}
	return cfg
}

func scalar(t *testing.T, times, values []float64) *timeseries.Series {
	s, err := timeseries.NewScalar(times, values)
	require.NoError(t, err)
	return s
}

func vector(t *testing.T, times []float64, values [][]float64) *timeseries.Series {
	s, err := timeseries.NewVector(times, values)
	require.NoError(t, err)
	return s
}

func fullRaw(t *testing.T) Raw {
	ts := []float64{1, 2}
	return Raw{
		"BCT1":  scalar(t, ts, []float64{1, 2}),
		"BCT2":  scalar(t, ts, []float64{1, 2}),
		"FBCT1": vector(t, ts, [][]float64{{1, 2, 3}, {1, 2, 3}}),
		"FBCT2": vector(t, ts, [][]float64{{1, 2}, {1, 2}}),
		"BQM1":  vector(t, ts, [][]float64{{1, 2, 3}, {1, 2, 3}}),
		"BQM2":  vector(t, ts, [][]float64{{1, 2}, {1, 2}}),
		"IMP":   vector(t, ts, [][]float64{{0.5}, {0.6}}),
		"SR":    scalar(t, ts, []float64{0.1, 0.1}),
		"HL1":   scalar(t, ts, []float64{10, 11}),
		"HL2":   scalar(t, ts, []float64{20, 21}),
		"extra": scalar(t, ts, []float64{0, 0}),
	}
}

func TestNewBundle(t *testing.T) {
	b, err := NewBundle(8000, testConfig(), fullRaw(t))
	require.NoError(t, err)
	assert.Equal(t, int64(8000), b.Run)
	assert.True(t, b.ImpedanceLoss.IsScalar())
	assert.True(t, b.SynchrotronLoss.IsScalar())
	assert.Equal(t, []string{"HL1", "HL2"}, b.HeatLoadNames)
	assert.Len(t, b.HeatLoads, 2)
	assert.Equal(t, 3, b.BunchLength[0].Width())
}

func TestNewBundleErrors(t *testing.T) {
	raw := fullRaw(t)
	delete(raw, "HL2")
	delete(raw, "BCT1")
	_, err := NewBundle(1, testConfig(), raw)
	assert.ErrorIs(t, err, errs.MissingChannelErr)
	assert.Contains(t, err.Error(), "HL2")
	assert.Contains(t, err.Error(), "BCT1")

	raw = fullRaw(t)
	raw["BQM2"] = vector(t, []float64{1}, [][]float64{{1, 2, 3}})
	_, err = NewBundle(1, testConfig(), raw)
	assert.ErrorIs(t, err, errs.ShapeErr)

	raw = fullRaw(t)
	raw["FBCT1"] = scalar(t, []float64{1}, []float64{1})
	_, err = NewBundle(1, testConfig(), raw)
	assert.ErrorIs(t, err, errs.ShapeErr)

	raw = fullRaw(t)
	raw["IMP"] = vector(t, []float64{1}, [][]float64{{1, 2}})
	_, err = NewBundle(1, testConfig(), raw)
	assert.ErrorIs(t, err, errs.ShapeErr)
}

func TestDecodeChannels(t *testing.T) {
	raw, err := DecodeChannels([]byte(`{
  "A": {"timestamps": [2, 1], "values": [20, 10]},
  "B": {"timestamps": [1, 2], "values": [[1, 2], [3, 4]]},
  "C": {"timestamps": [], "values": []}
}`))
	require.NoError(t, err)
	assert.True(t, raw["A"].IsScalar())
	assert.Equal(t, []float64{1, 2}, raw["A"].Times())
	assert.Equal(t, []float64{10}, raw["A"].Value(0))
	assert.False(t, raw["B"].IsScalar())
	assert.Equal(t, 2, raw["B"].Width())
	assert.Equal(t, 0, raw["C"].Len())

	_, err = DecodeChannels([]byte(`{"A": {"timestamps": [1], "values": ["x"]}}`))
	assert.ErrorIs(t, err, errs.ShapeErr)
	_, err = DecodeChannels([]byte(`{"A": {"timestamps": [1, 1], "values": [1, 2]}}`))
	assert.ErrorIs(t, err, errs.BadSeriesErr)
	_, err = DecodeChannels([]byte(`not json`))
	assert.ErrorIs(t, err, errs.BadSeriesErr)
}

func writeChannelFiles(t *testing.T, dir string, run int64, contents [3]string) {
	rec := &catalog.RunRecord{Run: run, Location: dir}
	for i, fn := range ChannelFilenames(rec) {
		require.NoError(t, os.MkdirAll(filepath.Dir(fn), 0755))
		require.NoError(t, os.WriteFile(fn, []byte(contents[i]), 0644))
	}
}

func TestFileLoader(t *testing.T) {
	dir := t.TempDir()
	writeChannelFiles(t, dir, 8000, [3]string{
		`{"BCT1": {"timestamps": [1], "values": [1e14]}}`,
		`{"FBCT1": {"timestamps": [1], "values": [[1e11, 0]]}}`,
		`{"HL1": {"timestamps": [1, 2], "values": [5, 6]}}`,
	})
	rec := &catalog.RunRecord{Run: 8000, Location: dir}
	raw, err := new(FileLoader).Load(context.Background(), rec)
	require.NoError(t, err)
	assert.Len(t, raw, 3)
	assert.Equal(t, 2, raw["HL1"].Len())

	// Same channel in two files
	writeChannelFiles(t, dir, 8001, [3]string{
		`{"X": {"timestamps": [1], "values": [1]}}`,
		`{"X": {"timestamps": [1], "values": [1]}}`,
		`{}`,
	})
	_, err = new(FileLoader).Load(context.Background(), &catalog.RunRecord{Run: 8001, Location: dir})
	assert.ErrorIs(t, err, errs.BadSeriesErr)

	// Missing files
	_, err = new(FileLoader).Load(context.Background(), &catalog.RunRecord{Run: 8002, Location: dir})
	assert.Error(t, err)
}

func TestFileLoaderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := new(FileLoader).Load(ctx, &catalog.RunRecord{Run: 1, Location: t.TempDir()})
	// Either the cancellation or the missing files may be noticed first.
	assert.Error(t, err)
}

func ExampleChannelFilenames() {
	for _, fn := range ChannelFilenames(&catalog.RunRecord{Run: 8000, Location: "/data/2022"}) {
		fmt.Println(fn)
	}
	// Output:
	// /data/2022/fill_basic_data_json/basic_data_fill_8000.json
	// /data/2022/fill_bunchbybunch_data_json/bunchbybunch_data_fill_8000.json
	// /data/2022/fill_heatload_data_json/heatloads_fill_8000.json
}
