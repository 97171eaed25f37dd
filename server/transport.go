package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/dbmcp"
	"github.com/jonwraymond/dbmcp/config"
)

const (
	readHeaderTimeout = 10 * time.Second
	httpStopTimeout   = 5 * time.Second
)

// Start serves the configured transport and blocks until the client goes
// away, ctx is cancelled, or Shutdown is called. It may be called once, after
// New. An unsupported transport fails with dbmcp.ErrConfiguration without
// changing state.
func (s *Server) Start(ctx context.Context) error {
	serve, err := s.transport()
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.state != StateToolsRegistered {
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: cannot start while %s", ErrState, st)
	}
	serveCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel, s.done = cancel, done
	s.state = StateRunning
	s.mu.Unlock()
	defer close(done)
	defer cancel()

	s.logger.Logf("server %s %s: running on %s with %d tools, %d adapters",
		s.cfg.Name, s.cfg.Version, s.cfg.Transport, len(s.set.ToolNames()), s.registry.Len())

	err = serve(serveCtx)
	if errors.Is(err, context.Canceled) && serveCtx.Err() != nil {
		err = nil
	}
	return err
}

func (s *Server) transport() (func(context.Context) error, error) {
	switch s.cfg.Transport {
	case config.TransportStdio:
		return s.serveStdio, nil
	case config.TransportHTTP:
		return s.serveHTTP, nil
	default:
		return nil, fmt.Errorf("%w: unsupported transport %q", dbmcp.ErrConfiguration, s.cfg.Transport)
	}
}

func (s *Server) serveStdio(ctx context.Context) error {
	var t mcp.Transport = &mcp.StdioTransport{}
	if s.opts.Stdio != nil {
		t = s.opts.Stdio
	}
	return s.mcp.Run(ctx, t)
}

func (s *Server) listenAddr() string {
	if s.opts.ListenAddr != "" {
		return s.opts.ListenAddr
	}
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
}

func (s *Server) serveHTTP(ctx context.Context) error {
	addr := s.listenAddr()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	s.mu.Lock()
	s.addr = ln.Addr().String()
	s.mu.Unlock()
	s.logger.Logf("listening on http://%s/mcp", ln.Addr())

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		stopCtx, cancel := context.WithTimeout(context.Background(), httpStopTimeout)
		defer cancel()
		if err := srv.Shutdown(stopCtx); err != nil {
			// Streaming sessions hold their connections open.
			_ = srv.Close()
		}
		<-errc
		return nil
	}
}

// Handler returns the HTTP routes served in http mode.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Handle("/mcp", mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcp
	}, nil))
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/catalog", s.handleCatalog).Methods(http.MethodGet)
	r.Handle("/metrics", s.opts.Metrics.Handler()).Methods(http.MethodGet)
	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	status := http.StatusOK
	if st := s.State(); st == StateShuttingDown || st == StateStopped {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"status":   s.State(),
		"adapters": s.registry.Len(),
		"tools":    s.set.ToolCount(),
	})
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	results, err := s.set.Catalog().Search(q.Get("q"), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tools": results, "count": len(results)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
