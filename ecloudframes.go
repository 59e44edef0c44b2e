// `ecloudframes` -- Incrementally extract per-run feature tables from LHC fill data
//
// Run `ecloudframes help` for brief help, and `ecloudframes <verb> -h` for the options of a verb.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ecloudframes/cmd/export"
	"ecloudframes/cmd/rows"
	"ecloudframes/cmd/serve"
	"ecloudframes/cmd/update"
	"ecloudframes/cmd/watch"
	. "ecloudframes/command"
)

// v0.1.0 - update and rows
// v0.2.0 - serve, watch, export

const EcloudframesVersion = "0.2.0"

func main() {
	cmd := commandLine()

	// The engine checks the context between runs, so an interrupt leaves a consistent store.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Perform(ctx, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func commandLine() Command {
	out := CLIOutput()

	if len(os.Args) < 2 {
		fmt.Fprintf(out, "Required operation missing, try `%s help`\n", os.Args[0])
		os.Exit(2)
	}

	var cmd Command
	var verb = os.Args[1]
	switch verb {
	case "help", "-h":
		fmt.Fprintf(out, "Usage: %s command [options]\n", os.Args[0])
		fmt.Fprintf(out, "Commands:\n")
		fmt.Fprintf(out, "  update  - extract rows for new runs and persist the store\n")
		fmt.Fprintf(out, "  rows    - print rows from the store\n")
		fmt.Fprintf(out, "  serve   - serve rows over HTTP\n")
		fmt.Fprintf(out, "  watch   - update whenever a Kafka trigger arrives\n")
		fmt.Fprintf(out, "  export  - copy rows to a PostgreSQL database\n")
		fmt.Fprintf(out, "  version - print information about the program\n")
		fmt.Fprintf(out, "  help    - print this message\n")
		fmt.Fprintf(out, "Each command accepts -h to further explain options.\n")
		os.Exit(0)
	case "update":
		cmd = new(update.UpdateCommand)
	case "rows":
		cmd = new(rows.RowsCommand)
	case "serve":
		cmd = &serve.ServeCommand{Version: EcloudframesVersion}
	case "watch":
		cmd = &watch.WatchCommand{Version: EcloudframesVersion}
	case "export":
		cmd = new(export.ExportCommand)
	case "version":
		fmt.Printf("ecloudframes version(%s)\n", EcloudframesVersion)
		os.Exit(0)
	default:
		fmt.Fprintf(out, "Unknown operation %s, try `%s help`\n", verb, os.Args[0])
		os.Exit(2)
	}

	fs := NewCLI(verb, cmd, os.Args[0], true)
	cmd.Add(fs)
	fs.Parse(os.Args[2:])

	if len(fs.Args()) > 0 {
		fmt.Fprintf(out, "Rest arguments not accepted by `%s`.\n", verb)
		os.Exit(2)
	}

	if err := cmd.Validate(); err != nil {
		fmt.Fprintf(out, "Bad arguments, try -h\n%v\n", err.Error())
		os.Exit(2)
	}

	return cmd
}
