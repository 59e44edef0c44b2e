package serve

import (
	"context"
	"errors"
	"io"
	"net/http"

	"ecloudframes/auth"
	. "ecloudframes/command"
	. "ecloudframes/common"
	"ecloudframes/server"
	"ecloudframes/status"
)

const DefaultPort = 8087

type ServeCommand struct {
	VerboseArgs
	StoreArgs
	Port     int
	AuthFile string
	Syslog   bool

	// Set by main for the OpenAPI description
	Version string
}

var _ Command = (*ServeCommand)(nil)

func (sc *ServeCommand) Summary() []string {
	return []string{
		"Serve the rows of the store over HTTP.  The snapshot is reloaded when it changes, so the",
		"server can run alongside `update` or `watch`.",
	}
}

func (sc *ServeCommand) Add(fs *CLI) {
	sc.VerboseArgs.Add(fs)
	sc.StoreArgs.Add(fs)
	fs.Group("daemon-configuration")
	fs.IntVar(&sc.Port, "port", DefaultPort, "Listen on `port`")
	fs.StringVar(&sc.AuthFile, "auth-file", "",
		"Require HTTP basic authentication with the username:password lines in `filename`")
	fs.BoolVar(&sc.Syslog, "syslog", false, "Also log to syslog")
}

func (sc *ServeCommand) Validate() error {
	var e1 error
	if sc.Port <= 0 || sc.Port > 65535 {
		e1 = errors.New("Bad -port")
	}
	return errors.Join(
		sc.VerboseArgs.Validate(),
		sc.StoreArgs.Validate(),
		e1,
	)
}

func (sc *ServeCommand) Perform(ctx context.Context, _, _ io.Writer) error {
	if sc.Syslog {
		status.Start("ecloudframes")
	}
	var authenticator *auth.Authenticator
	if sc.AuthFile != "" {
		var err error
		authenticator, err = auth.ReadPasswords(sc.AuthFile)
		if err != nil {
			return err
		}
	}
	handler := server.NewHandler(server.NewSnapshot(sc.Config.StoreFile), authenticator, sc.Version)
	return Run(ctx, sc.Verbose, sc.Port, handler)
}

// Serve handler until ctx is done or the server fails.
func Run(ctx context.Context, verbose bool, port int, handler http.Handler) error {
	failed := make(chan error, 1)
	s := server.New(verbose, port, handler, func(err error) { failed <- err })
	go s.Start()
	select {
	case <-ctx.Done():
		Log.Info("Stopping server")
		s.Stop()
		return nil
	case err := <-failed:
		return err
	}
}
