package store

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecloudframes/errs"
)

func sampleRow(ts float64) Row {
	return Row{
		TimestampFeature:  Float(ts),
		"n_bunches_b1":    Int(2748),
		"bunch_length_b1": Vector([]float64{1.1e-9, 1.2e-9}),
	}
}

func TestAppendContains(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "frames.bin"))
	assert.False(t, s.Contains("squeeze", 100))
	assert.Empty(t, s.Tags())
	assert.Nil(t, s.Rows("squeeze"))

	require.NoError(t, s.Append("squeeze", 100, sampleRow(1000)))
	assert.True(t, s.Dirty())
	assert.True(t, s.Contains("squeeze", 100))
	assert.False(t, s.Contains("squeeze", 101))
	assert.False(t, s.Contains("stable", 100))

	err := s.Append("squeeze", 100, sampleRow(2000))
	assert.ErrorIs(t, err, errs.DuplicateRunErr)
	row, found := s.Row("squeeze", 100)
	require.True(t, found)
	assert.Equal(t, Float(1000), row[TimestampFeature], "first row must be kept")

	require.NoError(t, s.Append("squeeze", 99, Row{TimestampFeature: Float(5), "extra": Float(1)}))
	assert.Equal(t, []string{"bunch_length_b1", "extra", "n_bunches_b1", "timestamp"}, s.Columns("squeeze"))
	assert.Equal(t, []int64{99, 100}, s.Runs("squeeze"))
	rows := s.Rows("squeeze")
	require.Len(t, rows, 2)
	assert.Equal(t, int64(99), rows[0].Run)
	assert.Equal(t, 2, s.Len("squeeze"))
}

func TestAppendCopiesRow(t *testing.T) {
	s := New("unused")
	r := sampleRow(1)
	require.NoError(t, s.Append("a", 1, r))
	r["timestamp"] = Float(99)
	got, _ := s.Row("a", 1)
	assert.Equal(t, Float(1), got["timestamp"])
}

func TestLoadAbsent(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "none.bin"))
	require.NoError(t, err)
	assert.Empty(t, s.Tags())
	assert.False(t, s.Dirty())
}

func TestPersistLoadRoundTrip(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "frames.bin")
	s := New(fn)
	require.NoError(t, s.Append("squeeze", 100, sampleRow(1000.5)))
	require.NoError(t, s.Append("squeeze", 7, Row{TimestampFeature: Float(math.NaN())}))
	require.NoError(t, s.Append("integrated", 100, Row{TimestampFeature: Float(1), "S12": Float(3.25e5)}))
	require.NoError(t, s.Persist())
	assert.False(t, s.Dirty())

	t2, err := Load(fn)
	require.NoError(t, err)
	assert.Equal(t, []string{"integrated", "squeeze"}, t2.Tags())
	assert.Equal(t, s.Columns("squeeze"), t2.Columns("squeeze"))
	for _, tag := range s.Tags() {
		for _, rr := range s.Rows(tag) {
			got, found := t2.Row(tag, rr.Run)
			require.True(t, found)
			require.Len(t, got, len(rr.Row))
			for k, v := range rr.Row {
				assert.True(t, v.Equal(got[k]), "%s %d %s", tag, rr.Run, k)
			}
		}
	}

	// No temp files left behind
	entries, err := os.ReadDir(filepath.Dir(fn))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestPersistDeterministic(t *testing.T) {
	dir := t.TempDir()
	build := func(name string, order []int64) []byte {
		s := New(filepath.Join(dir, name))
		for _, run := range order {
			require.NoError(t, s.Append("squeeze", run, sampleRow(float64(run))))
			require.NoError(t, s.Append("integrated", run, Row{"timestamp": Float(1), "a": Int(run)}))
		}
		require.NoError(t, s.Persist())
		b, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		return b
	}
	a := build("a.bin", []int64{1, 2, 3, 4})
	b := build("b.bin", []int64{4, 2, 3, 1})
	assert.True(t, bytes.Equal(a, b))

	// Loading and persisting again changes nothing
	s, err := Load(filepath.Join(dir, "a.bin"))
	require.NoError(t, err)
	require.NoError(t, s.Persist())
	c, err := os.ReadFile(filepath.Join(dir, "a.bin"))
	require.NoError(t, err)
	assert.True(t, bytes.Equal(a, c))
}

func TestPersistFailureKeepsOldSnapshot(t *testing.T) {
	dir := t.TempDir()
	fn := filepath.Join(dir, "frames.bin")
	s := New(fn)
	require.NoError(t, s.Append("a", 1, sampleRow(1)))
	require.NoError(t, s.Persist())
	before, err := os.ReadFile(fn)
	require.NoError(t, err)

	// A store whose directory is gone cannot persist, and the error must surface.
	lost := New(filepath.Join(dir, "gone", "frames.bin"))
	require.NoError(t, lost.Append("a", 2, sampleRow(2)))
	assert.Error(t, lost.Persist())
	assert.True(t, lost.Dirty())

	after, err := os.ReadFile(fn)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestLoadCorrupt(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "frames.bin")
	require.NoError(t, os.WriteFile(fn, []byte("definitely not a snapshot"), 0644))
	_, err := Load(fn)
	assert.Error(t, err)
}

func TestValueJSON(t *testing.T) {
	b, err := json.Marshal(Row{
		"f": Float(1.5),
		"n": Float(math.NaN()),
		"i": Int(3),
		"v": Vector([]float64{1, math.Inf(1)}),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"f":1.5,"n":null,"i":3,"v":[1,null]}`, string(b))

	assert.Equal(t, "1 2.5", Vector([]float64{1, 2.5}).String())
	assert.Equal(t, "42", Int(42).String())
	assert.Equal(t, "1e+11", Float(1e11).String())
}
