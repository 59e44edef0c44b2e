package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"

	. "ecloudframes/command"
	pgexport "ecloudframes/export"
	"ecloudframes/store"
)

type ExportCommand struct {
	VerboseArgs
	StoreArgs
	DatabaseURI string
}

var _ Command = (*ExportCommand)(nil)

func (ec *ExportCommand) Summary() []string {
	return []string{
		"Copy the rows of the store to the feature_rows table of a PostgreSQL database.  Rows",
		"already in the database are left alone.",
	}
}

func (ec *ExportCommand) Add(fs *CLI) {
	ec.VerboseArgs.Add(fs)
	ec.StoreArgs.Add(fs)
	fs.StringVar(&ec.DatabaseURI, "database-uri", "",
		"Connect to the database at `uri` [default: from configuration]")
}

func (ec *ExportCommand) Validate() error {
	if err := errors.Join(ec.VerboseArgs.Validate(), ec.StoreArgs.Validate()); err != nil {
		return err
	}
	if ec.DatabaseURI != "" {
		ec.Config.DatabaseURI = ec.DatabaseURI
	}
	if ec.Config.DatabaseURI == "" {
		return errors.New("A database is required, use -database-uri or the configuration file")
	}
	return nil
}

func (ec *ExportCommand) Perform(ctx context.Context, stdout, _ io.Writer) error {
	st, err := store.Load(ec.Config.StoreFile)
	if err != nil {
		return err
	}
	stats, err := pgexport.ExportURI(ctx, ec.Config.DatabaseURI, st, ec.Verbose)
	if err != nil {
		return err
	}
	for _, tag := range slices.Sorted(maps.Keys(stats.Inserted)) {
		fmt.Fprintf(stdout, "%s: %d rows inserted\n", tag, stats.Inserted[tag])
	}
	return nil
}
