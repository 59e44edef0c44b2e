package rows

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecloudframes/command"
	"ecloudframes/store"
)

func testCommand(t *testing.T, format string, run int64) *RowsCommand {
	fn := filepath.Join(t.TempDir(), "frames.bin")
	st := store.New(fn)
	require.NoError(t, st.Append("squeeze", 2, store.Row{"timestamp": store.Float(20), "v": store.Vector([]float64{1, 2})}))
	require.NoError(t, st.Append("squeeze", 1, store.Row{"timestamp": store.Float(10), "n": store.Int(3)}))
	require.NoError(t, st.Append("squeeze", 0, store.Row{"timestamp": store.Float(5)}))
	require.NoError(t, st.Persist())

	rc := &RowsCommand{
		StoreArgs:  command.StoreArgs{StoreFile: fn},
		FormatArgs: command.FormatArgs{Fmt: format},
		Tag:        "squeeze",
		Run:        run,
	}
	require.NoError(t, rc.Validate())
	return rc
}

func TestRowsCSV(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, testCommand(t, "csv", AllRuns).Perform(context.Background(), &out, nil))
	assert.Equal(t, "run,n,timestamp,v\n0,,5,\n1,3,10,\n2,,20,1 2\n", out.String())
}

func TestRowsJSON(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, testCommand(t, "json", 2).Perform(context.Background(), &out, nil))
	assert.JSONEq(t, `{"run":2,"features":{"timestamp":20,"v":[1,2]}}`, out.String())

	rc := testCommand(t, "json", 5)
	assert.ErrorContains(t, rc.Perform(context.Background(), &out, nil), "No row for run 5")
}

func TestRowsRunZero(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, testCommand(t, "json", 0).Perform(context.Background(), &out, nil))
	assert.JSONEq(t, `{"run":0,"features":{"timestamp":5}}`, out.String())
}

func TestRowsValidate(t *testing.T) {
	rc := &RowsCommand{FormatArgs: command.FormatArgs{Fmt: "xml"}, Run: -2}
	err := rc.Validate()
	assert.ErrorContains(t, err, "-tag is required")
	assert.ErrorContains(t, err, "Unknown format")
	assert.ErrorContains(t, err, "-run must be a non-negative run number")
}
