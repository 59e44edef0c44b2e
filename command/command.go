package command

import (
	"context"
	"io"
)

// An ecloudframes verb: update, rows, serve, watch, export.

type Command interface {
	// Documentation, one line per element
	Summary() []string

	// Add all arguments including shared arguments
	Add(fs *CLI)

	// Validate all arguments including shared arguments
	Validate() error

	// Perform the operation.  ctx is cancelled on SIGINT and SIGTERM.
	Perform(ctx context.Context, stdout, stderr io.Writer) error
}
