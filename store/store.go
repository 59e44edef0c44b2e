// The incremental store holds one table per tag.  A table is keyed by run number, holds at most one
// row per run, and its columns are the union of the features of its rows.  Rows are only ever
// added, never replaced or removed, so a table goes from empty to populated and stays populated.
//
// The whole store is persisted as a single snapshot file.  Persisting writes a temporary file next
// to the target, syncs it, and renames it over the target, so a crash leaves either the old or the
// new snapshot and never a torn one.
//
// The store is not thread-safe; it is owned by the engine loop.

package store

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"ecloudframes/errs"
)

const snapshotPermissions = 0644

type table struct {
	columns map[string]bool
	rows    map[int64]Row
}

type Store struct {
	filename string
	tables   map[string]*table
	dirty    bool
}

// A new, empty store that will persist to filename.
func New(filename string) *Store {
	return &Store{
		filename: filename,
		tables:   make(map[string]*table),
	}
}

// Load the snapshot in filename.  If the file does not exist the store is empty.
func Load(filename string) (*Store, error) {
	s := New(filename)
	input, err := os.Open(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, err
	}
	defer input.Close()
	if err := s.decode(input); err != nil {
		return nil, fmt.Errorf("Snapshot %s: %w", filename, err)
	}
	return s, nil
}

func (s *Store) Filename() string {
	return s.filename
}

// True if there are appended rows that have not been persisted.
func (s *Store) Dirty() bool {
	return s.dirty
}

func (s *Store) Contains(tag string, run int64) bool {
	if t := s.tables[tag]; t != nil {
		_, found := t.rows[run]
		return found
	}
	return false
}

// Add the row for run to the tag's table.  The row is copied.  It is an error for the run to be
// present already.
func (s *Store) Append(tag string, run int64, row Row) error {
	t := s.tables[tag]
	if t == nil {
		t = &table{
			columns: make(map[string]bool),
			rows:    make(map[int64]Row),
		}
		s.tables[tag] = t
	}
	if _, found := t.rows[run]; found {
		return fmt.Errorf("%w: tag %s run %d", errs.DuplicateRunErr, tag, run)
	}
	t.rows[run] = maps.Clone(row)
	for name := range row {
		t.columns[name] = true
	}
	s.dirty = true
	return nil
}

// Tags with at least one row, sorted.
func (s *Store) Tags() []string {
	return slices.Sorted(maps.Keys(s.tables))
}

func (s *Store) Columns(tag string) []string {
	if t := s.tables[tag]; t != nil {
		return slices.Sorted(maps.Keys(t.columns))
	}
	return nil
}

func (s *Store) Len(tag string) int {
	if t := s.tables[tag]; t != nil {
		return len(t.rows)
	}
	return 0
}

// Run numbers of the tag's table in ascending order.
func (s *Store) Runs(tag string) []int64 {
	if t := s.tables[tag]; t != nil {
		return slices.Sorted(maps.Keys(t.rows))
	}
	return nil
}

// The row for one run.  The row is shared with the store and must not be modified.
func (s *Store) Row(tag string, run int64) (Row, bool) {
	if t := s.tables[tag]; t != nil {
		row, found := t.rows[run]
		return row, found
	}
	return nil, false
}

type RunRow struct {
	Run int64
	Row Row
}

// All rows of the tag's table in ascending run order.  The rows are shared with the store and must
// not be modified.
func (s *Store) Rows(tag string) []RunRow {
	t := s.tables[tag]
	if t == nil {
		return nil
	}
	result := make([]RunRow, 0, len(t.rows))
	for _, run := range slices.Sorted(maps.Keys(t.rows)) {
		result = append(result, RunRow{run, t.rows[run]})
	}
	return result
}

// Write the whole store atomically to its file.
func (s *Store) Persist() error {
	dir := filepath.Dir(s.filename)
	output, err := os.CreateTemp(dir, filepath.Base(s.filename)+".tmp*")
	if err != nil {
		return err
	}
	// NOTE, any error exit before the rename must remove the temp file.
	tempname := output.Name()
	fail := func(err error) error {
		output.Close()
		os.Remove(tempname)
		return fmt.Errorf("Persisting %s: %w", s.filename, err)
	}
	if err := s.encode(output); err != nil {
		return fail(err)
	}
	if err := output.Chmod(snapshotPermissions); err != nil {
		return fail(err)
	}
	if err := output.Sync(); err != nil {
		return fail(err)
	}
	if err := output.Close(); err != nil {
		os.Remove(tempname)
		return fmt.Errorf("Persisting %s: %w", s.filename, err)
	}
	if err := os.Rename(tempname, s.filename); err != nil {
		os.Remove(tempname)
		return fmt.Errorf("Persisting %s: %w", s.filename, err)
	}
	syncDir(dir)
	s.dirty = false
	return nil
}

// Make the rename durable.  Not all platforms can sync a directory, failure is ignored.
func syncDir(dir string) {
	if d, err := os.Open(dir); err == nil {
		d.Sync()
		d.Close()
	}
}
