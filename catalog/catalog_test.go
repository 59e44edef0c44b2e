package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCatalog(t *testing.T) {
	mc, err := ReadCatalog(strings.NewReader(`{
 "100": {"complete": true, "t_stop_SQUEEZE": 1000.0, "t_start_STABLE": null, "note": "x"},
 "101": {"complete": false},
 "99": {"t_startfill": 5}
}`), "/data")
	require.NoError(t, err)
	assert.Equal(t, []int64{99, 100, 101}, mc.Runs())

	r, found := mc.Lookup(100)
	require.True(t, found)
	assert.True(t, r.Complete)
	assert.Equal(t, "/data", r.Location)
	ts, found := r.Phase("t_stop_SQUEEZE")
	assert.True(t, found)
	assert.Equal(t, 1000.0, ts)
	_, found = r.Phase("t_start_STABLE")
	assert.False(t, found)
	_, found = r.Phase("note")
	assert.False(t, found)
	_, found = r.Phase("no_such_phase")
	assert.False(t, found)

	r, _ = mc.Lookup(99)
	assert.False(t, r.Complete)

	_, found = mc.Lookup(7)
	assert.False(t, found)
}

func TestReadCatalogErrors(t *testing.T) {
	for _, input := range []string{
		`[1,2]`,
		`{"x12": {}}`,
		`{"12": {"complete": "yes"}}`,
	} {
		_, err := ReadCatalog(strings.NewReader(input), "")
		assert.Error(t, err, input)
	}
}

func TestLoadFoldersLaterWins(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(a, CatalogFilename),
		[]byte(`{"1": {"complete": false}, "2": {"complete": true}}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(b, CatalogFilename),
		[]byte(`{"1": {"complete": true}}`), 0644))

	mc, err := LoadFolders([]string{a, b})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, mc.Runs())
	r1, _ := mc.Lookup(1)
	assert.True(t, r1.Complete)
	assert.Equal(t, b, r1.Location)
	r2, _ := mc.Lookup(2)
	assert.Equal(t, a, r2.Location)

	_, err = LoadFolders([]string{t.TempDir()})
	assert.Error(t, err)
}
