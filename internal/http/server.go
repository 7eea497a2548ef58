// README: API gateway; wires handlers over the session service and runs the HTTP server.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"riderhub/internal/config"
	"riderhub/internal/modules/offer"
	"riderhub/internal/modules/session"
)

type ServerDeps struct {
	Sessions *session.Service
	Pool     *offer.Pool
	// Live serves GET /api/offers/live; nil reads the local pool.
	Live     offer.LiveSource
	Offers   config.OffersConfig
	Currency string
	Log      logrus.FieldLogger
}

type Server struct {
	srv *http.Server
	log logrus.FieldLogger
}

func NewServer(addr string, deps ServerDeps) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(deps),
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: deps.Log,
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.srv.Addr).Info("http server listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
