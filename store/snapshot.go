package store

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"

	"ecloudframes/errs"
)

// Snapshot file format: a zstd frame holding canonical CBOR of snapshotRepr.  Canonical CBOR sorts
// map keys, and tables and rows are emitted in sorted order, so the same store always yields the
// same bytes.

const snapshotVersion = 1

type snapshotRepr struct {
	Version int                  `cbor:"version"`
	Tables  map[string]tableRepr `cbor:"tables"`
}

type tableRepr struct {
	Columns []string  `cbor:"columns"`
	Rows    []rowRepr `cbor:"rows"`
}

type rowRepr struct {
	Run      int64 `cbor:"run"`
	Features Row   `cbor:"features"`
}

var (
	// MT: Constant after initialization; thread-safe
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	decMode, err = cbor.DecOptions{
		MaxArrayElements: 1 << 24,
		MaxMapPairs:      1 << 24,
	}.DecMode()
	if err != nil {
		panic(err)
	}
}

func (s *Store) encode(w io.Writer) error {
	repr := snapshotRepr{
		Version: snapshotVersion,
		Tables:  make(map[string]tableRepr, len(s.tables)),
	}
	for name, t := range s.tables {
		tr := tableRepr{
			Columns: slices.Sorted(maps.Keys(t.columns)),
			Rows:    make([]rowRepr, 0, len(t.rows)),
		}
		for _, run := range slices.Sorted(maps.Keys(t.rows)) {
			tr.Rows = append(tr.Rows, rowRepr{Run: run, Features: t.rows[run]})
		}
		repr.Tables[name] = tr
	}
	bytes, err := encMode.Marshal(repr)
	if err != nil {
		return err
	}
	// One goroutine keeps the compressed output deterministic.
	enc, err := zstd.NewWriter(w, zstd.WithEncoderConcurrency(1))
	if err != nil {
		return err
	}
	if _, err := enc.Write(bytes); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

func (s *Store) decode(r io.Reader) error {
	dec, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return err
	}
	defer dec.Close()
	bytes, err := io.ReadAll(dec)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.BadSnapshotErr, err)
	}
	var repr snapshotRepr
	if err := decMode.Unmarshal(bytes, &repr); err != nil {
		return fmt.Errorf("%w: %v", errs.BadSnapshotErr, err)
	}
	if repr.Version != snapshotVersion {
		return fmt.Errorf("%w: unsupported version %d", errs.BadSnapshotErr, repr.Version)
	}
	for name, tr := range repr.Tables {
		if len(tr.Rows) == 0 {
			continue
		}
		t := &table{
			columns: make(map[string]bool, len(tr.Columns)),
			rows:    make(map[int64]Row, len(tr.Rows)),
		}
		for _, c := range tr.Columns {
			t.columns[c] = true
		}
		for _, r := range tr.Rows {
			if _, found := t.rows[r.Run]; found {
				return fmt.Errorf("%w: tag %s has run %d twice", errs.BadSnapshotErr, name, r.Run)
			}
			if r.Features == nil {
				r.Features = make(Row)
			}
			t.rows[r.Run] = r.Features
			for c := range r.Features {
				t.columns[c] = true
			}
		}
		s.tables[name] = t
	}
	return nil
}
