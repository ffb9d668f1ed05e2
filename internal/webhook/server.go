package webhook

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"donobot/internal/metrics"
	logx "donobot/pkg/logx"
)

type ServerConfig struct {
	Addr string
}

// Server is the inbound HTTP surface: the payment callback, a health line,
// and Prometheus metrics.
type Server struct {
	log logx.Logger
	srv *http.Server
}

func NewServer(cfg ServerConfig, h *Handler, rec *metrics.Recorder, log logx.Logger) *Server {
	if log.IsZero() {
		log = logx.Nop()
	}

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
	)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("✅ Donation callback server is running.\n"))
	})
	r.Post("/callback", h.Callback)
	if reg := rec.Registry(); reg != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	addr := cfg.Addr
	if addr == "" {
		addr = ":8080"
	}
	return &Server{
		log: log,
		srv: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// Run serves until ctx is cancelled. A failure to bind the listener is fatal
// and returned to the caller.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("webhook listening", logx.String("addr", s.srv.Addr))
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.log.Warn("webhook shutdown error", logx.Err(err))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
