package rows

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	. "ecloudframes/command"
	"ecloudframes/store"
)

// The -run value that selects every row.  Run numbers are non-negative, run 0 included.
const AllRuns = -1

type RowsCommand struct {
	VerboseArgs
	StoreArgs
	FormatArgs
	Tag string
	Run int64
}

var _ Command = (*RowsCommand)(nil)

func (rc *RowsCommand) Summary() []string {
	return []string{
		"Print the rows of one tag from the store, all of them or the row of one run.",
	}
}

func (rc *RowsCommand) Add(fs *CLI) {
	rc.VerboseArgs.Add(fs)
	rc.StoreArgs.Add(fs)
	rc.FormatArgs.Add(fs)
	fs.Group("operation-selection")
	fs.StringVar(&rc.Tag, "tag", "", "Print rows of the tag `name` (required)")
	fs.Int64Var(&rc.Run, "run", AllRuns, "Print only the row of run `number` [default: all]")
}

func (rc *RowsCommand) Validate() error {
	var e1 error
	if rc.Tag == "" {
		e1 = errors.New("-tag is required")
	}
	var e2 error
	if rc.Run < 0 && rc.Run != AllRuns {
		e2 = errors.New("-run must be a non-negative run number")
	}
	return errors.Join(
		rc.VerboseArgs.Validate(),
		rc.StoreArgs.Validate(),
		rc.FormatArgs.Validate(),
		e1,
		e2,
	)
}

func (rc *RowsCommand) Perform(_ context.Context, stdout, _ io.Writer) error {
	st, err := store.Load(rc.Config.StoreFile)
	if err != nil {
		return err
	}
	var rows []store.RunRow
	if rc.Run != AllRuns {
		row, found := st.Row(rc.Tag, rc.Run)
		if !found {
			return fmt.Errorf("No row for run %d in tag %s", rc.Run, rc.Tag)
		}
		rows = []store.RunRow{{Run: rc.Run, Row: row}}
	} else {
		rows = st.Rows(rc.Tag)
	}
	if rc.Fmt == FormatCSV {
		return writeCSV(stdout, st.Columns(rc.Tag), rows)
	}
	return writeJSON(stdout, rows)
}

type jsonRow struct {
	Run      int64     `json:"run"`
	Features store.Row `json:"features"`
}

// One JSON object per line.
func writeJSON(out io.Writer, rows []store.RunRow) error {
	enc := json.NewEncoder(out)
	for _, rr := range rows {
		if err := enc.Encode(jsonRow{rr.Run, rr.Row}); err != nil {
			return err
		}
	}
	return nil
}

// A header of "run" and the columns, then one record per row.  Features a row does not have are
// empty, vectors are space-separated.
func writeCSV(out io.Writer, columns []string, rows []store.RunRow) error {
	w := csv.NewWriter(out)
	if err := w.Write(append([]string{"run"}, columns...)); err != nil {
		return err
	}
	record := make([]string, len(columns)+1)
	for _, rr := range rows {
		record[0] = strconv.FormatInt(rr.Run, 10)
		for i, c := range columns {
			if v, found := rr.Row[c]; found {
				record[i+1] = v.String()
			} else {
				record[i+1] = ""
			}
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
