// Export of the tag tables to PostgreSQL (or TimescaleDB) for downstream reporting.
//
// All tags go into one table:
//
//   feature_rows(tag text, run_id bigint, features jsonb, primary key (tag, run_id))
//
// The export is append-only like the store: a row that is already in the database is left alone,
// so exporting the same store twice changes nothing.

package export

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	. "ecloudframes/common"
	"ecloudframes/store"
)

const (
	createTable = `CREATE TABLE IF NOT EXISTS feature_rows (
  tag text NOT NULL,
  run_id bigint NOT NULL,
  features jsonb NOT NULL,
  PRIMARY KEY (tag, run_id))`

	insertRow = `INSERT INTO feature_rows (tag, run_id, features) VALUES ($1, $2, $3::jsonb)
  ON CONFLICT (tag, run_id) DO NOTHING`

	selectRuns = `SELECT run_id FROM feature_rows WHERE tag = $1 ORDER BY run_id`
)

// The part of a connection or transaction that Export needs.
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

var _ Execer = (*pgx.Conn)(nil)
var _ Execer = (pgx.Tx)(nil)

type Stats struct {
	Inserted map[string]int // Per tag
	Skipped  map[string]int // Per tag, rows that were already present
}

// Export every row of the store.
func Export(ctx context.Context, db Execer, st *store.Store, verbose bool) (*Stats, error) {
	if _, err := db.Exec(ctx, createTable); err != nil {
		return nil, fmt.Errorf("Creating table: %w", err)
	}
	stats := &Stats{
		Inserted: make(map[string]int),
		Skipped:  make(map[string]int),
	}
	for _, tag := range st.Tags() {
		for _, rr := range st.Rows(tag) {
			features, err := json.Marshal(rr.Row)
			if err != nil {
				return nil, fmt.Errorf("Tag %s run %d: %w", tag, rr.Run, err)
			}
			ct, err := db.Exec(ctx, insertRow, tag, rr.Run, string(features))
			if err != nil {
				return nil, fmt.Errorf("Tag %s run %d: %w", tag, rr.Run, err)
			}
			if ct.RowsAffected() > 0 {
				stats.Inserted[tag]++
			} else {
				stats.Skipped[tag]++
			}
		}
		if verbose {
			Log.Infof("Tag %s: %d rows inserted, %d already present", tag, stats.Inserted[tag], stats.Skipped[tag])
		}
	}
	return stats, nil
}

// Export the store in one transaction on a new connection to the database.
func ExportURI(ctx context.Context, databaseURI string, st *store.Store, verbose bool) (*Stats, error) {
	conn, err := pgx.Connect(ctx, databaseURI)
	if err != nil {
		return nil, fmt.Errorf("Unable to connect to database: %w", err)
	}
	defer conn.Close(ctx)
	tx, err := conn.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)
	stats, err := Export(ctx, tx, st, verbose)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return stats, nil
}

// The run numbers exported for the tag, ascending.
func ExportedRuns(ctx context.Context, conn *pgx.Conn, tag string) ([]int64, error) {
	rows, err := conn.Query(ctx, selectRuns, tag)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}
