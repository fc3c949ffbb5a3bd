// Package server exposes the scraping engine over HTTP so the briefing
// engine (and anything else on the network) can pull live departures
// without owning a browser.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/calmackay/commutecast/internal/scraper"
	"github.com/calmackay/commutecast/internal/utils"
)

type Server struct {
	Service *scraper.Service
	now     func() time.Time
}

func New(svc *scraper.Service) *Server {
	return &Server{Service: svc, now: time.Now}
}

// Handler builds the route table. Exposed separately from Start so
// tests can drive it without a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /lothian/stop/{stopCode}", s.handleStop)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /cache/clear", s.handleCacheClear)
	mux.HandleFunc("GET /{$}", s.handleInfo)

	return mux
}

// Start serves until the listener fails or ctx is cancelled, then
// drains in-flight requests before returning.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}

	errCh := make(chan error, 1)
	go func() {
		utils.Log.Infof("starting scraper service on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		utils.Log.Info("shutting down scraper service")
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	}
}
