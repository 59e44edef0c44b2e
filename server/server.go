package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	. "ecloudframes/common"
)

const (
	serverShutdownTimeoutSec = 10
)

type Server struct {
	verbose bool
	port    int
	handler http.Handler
	failed  func(error)
	stop    chan bool
	server  *http.Server
}

// failed is called if the server cannot start or dies.
func New(verbose bool, port int, handler http.Handler, failed func(error)) *Server {
	return &Server{
		verbose: verbose,
		port:    port,
		handler: handler,
		failed:  failed,
		stop:    make(chan bool, 1),
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Serve until Stop is called.  This blocks, run it on a goroutine.
func (s *Server) Start() {
	if s.verbose {
		Log.Infof("Listening on port %d", s.port)
	}
	err := s.server.ListenAndServe()
	if err != nil {
		if err != http.ErrServerClosed {
			Log.Error(err)
			Log.Error("SERVER NOT RUNNING")
			s.failed(err)
		} else {
			Log.Info(err)
		}
	}
	s.stop <- true
}

func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeoutSec*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		Log.Warning(err)
	}
	<-s.stop
}
