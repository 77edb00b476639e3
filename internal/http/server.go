package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"lsmdb/pkg/bytes"
	"lsmdb/pkg/metrics"
	"lsmdb/pkg/session"
	"lsmdb/pkg/store"

	"github.com/go-chi/chi/v5"
)

const (
	contentTypeJSON        = "application/json"
	defaultHTTPPort        = "8080"
	defaultShutdownTimeout = time.Second * 5
)

// Server exposes a root session, stacked on a durable leaf store, over a
// small debug/demo REST surface. There is no cluster, no leader to redirect
// to, and no raft wire protocol: spec.md's Non-goals exclude multi-process
// access and any network surface beyond a single local debug API, so this
// is the only HTTP layer the repository has.
type Server struct {
	root       *session.Session
	leaf       *store.Leaf
	metrics    metrics.Collector
	httpServer *http.Server
	URL        string
	addr       string
}

// NewServer wires root (typically a session attached to leaf) behind an
// HTTP API listening on port. leaf is kept separately so /undo can
// re-attach root to it after discarding root's buffered state.
func NewServer(root *session.Session, leaf *store.Leaf, port string) *Server {
	if port == "" {
		port = defaultHTTPPort
	}
	return &Server{
		root:    root,
		leaf:    leaf,
		metrics: metrics.Noop{},
		URL:     "http://localhost:" + port,
		addr:    ":" + port,
	}
}

// SetMetrics installs the Collector that request handling reports request
// counts to. A Server with no Collector set reports to metrics.Noop.
func (s *Server) SetMetrics(c metrics.Collector) {
	s.metrics = c
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	if err := s.startHTTPServer(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully shuts the HTTP server down.
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}
	return nil
}

func (s *Server) createRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(s.countRequests)

	r.Get("/health", s.handleHealth)
	r.Get("/keys", s.handleScan)
	r.Get("/keys/{key}", s.handleGet)
	r.Put("/keys/{key}", s.handlePut)
	r.Delete("/keys/{key}", s.handleDelete)
	r.Post("/commit", s.handleCommit)
	r.Post("/undo", s.handleUndo)

	return r
}

// countRequests reports one request per method+route to the server's
// metrics Collector.
func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = r.URL.Path
		}
		s.metrics.IncCounter("http_requests_total", map[string]string{
			"method": r.Method,
			"route":  route,
		}, 1)
	})
}

func (s *Server) startHTTPServer() error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.createRouter(),
		ReadHeaderTimeout: time.Second,
	}

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("HTTP server started", "addr", s.URL)
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("error encoding response", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, NewOKResponse())
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	value := s.root.Read(bytes.FromString(key))
	if !value.IsValid() {
		s.writeJSON(w, http.StatusNotFound, NewErrorResponse("key not found"))
		return
	}
	s.writeJSON(w, http.StatusOK, NewValueResponse(value.String()))
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, NewErrorResponse("failed to read request body"))
		return
	}

	s.root.Write(bytes.FromString(key), bytes.New(body))
	s.writeJSON(w, http.StatusOK, NewSuccessResponse())
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	s.root.Erase(bytes.FromString(key))
	s.writeJSON(w, http.StatusOK, NewSuccessResponse())
}

// scanEntry is one row of a /keys range-scan response.
type scanEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	from := bytes.Invalid
	to := bytes.Invalid
	if v := r.URL.Query().Get("from"); v != "" {
		from = bytes.FromString(v)
	}
	if v := r.URL.Query().Get("to"); v != "" {
		to = bytes.FromString(v)
	}

	opts := session.ScanOptions{Reverse: r.URL.Query().Get("reverse") == "true"}

	var entries []scanEntry
	err := session.Scan(s.root, from, to, opts, func(res session.ScanResult) error {
		entries = append(entries, scanEntry{Key: res.Key.String(), Value: res.Value.String()})
		return nil
	})
	if err != nil {
		s.writeJSON(w, http.StatusInternalServerError, NewErrorResponse(err.Error()))
		return
	}

	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(entries); err != nil {
		slog.Warn("error encoding scan response", "error", err)
	}
}

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	s.root.Commit()
	s.writeJSON(w, http.StatusOK, NewSuccessResponse())
}

// handleUndo discards every buffered write/tombstone on the root session.
// Session.Undo detaches as a side effect (per spec.md, undo is total and
// unconditional), so the handler re-attaches root to leaf immediately
// after: the HTTP-visible effect is "forget what's buffered", not "sever
// the server from its store".
func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	s.root.Undo()
	s.root.Attach(s.leaf)
	s.writeJSON(w, http.StatusOK, NewSuccessResponse())
}
