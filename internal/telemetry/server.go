package telemetry

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rileyhilliard/hostwatch/internal/errors"
	"github.com/rileyhilliard/hostwatch/internal/logger"
)

// Server serves /metrics and /healthz for a Metrics registry.
type Server struct {
	srv      *http.Server
	listener net.Listener
	log      logger.Logger
}

// Handler returns the HTTP handler exposing m.
func Handler(m *Metrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// Start listens on addr and serves in the background.
func Start(addr string, m *Metrics, log logger.Logger) (*Server, error) {
	if log == nil {
		log = logger.Noop()
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Cannot listen for metrics on %s", addr),
			"Pick a free address for --metrics-addr, e.g. 127.0.0.1:9464")
	}

	s := &Server{
		srv: &http.Server{
			Handler:           Handler(m),
			ReadHeaderTimeout: 5 * time.Second,
		},
		listener: ln,
		log:      log,
	}

	go func() {
		if err := s.srv.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server exited: %v", err)
		}
	}()
	log.Debug("serving metrics on http://%s/metrics", ln.Addr())
	return s, nil
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Shutdown stops the server, waiting for in-flight scrapes up to ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
