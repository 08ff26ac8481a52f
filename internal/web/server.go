// Package web serves the flowmouse status page over HTTP.
package web

import (
	"context"
	"net/http"

	"github.com/sweeney/flowmouse/internal/status"
)

// Server renders tracker snapshots as HTML at / and JSON at /index.json.
// Any other path is a 404.
type Server struct {
	tracker *status.Tracker
	http    *http.Server
}

func New(addr string, tracker *status.Tracker) *Server {
	s := &Server{tracker: tracker}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.page)
	mux.HandleFunc("GET /index.html", s.page)
	mux.HandleFunc("GET /index.json", s.json)

	s.http = &http.Server{Addr: addr, Handler: mux}
	return s
}

// Handler exposes the routes without a listener, for httptest.
func (s *Server) Handler() http.Handler { return s.http.Handler }

// ListenAndServe blocks until Shutdown.
func (s *Server) ListenAndServe() error { return s.http.ListenAndServe() }

func (s *Server) Shutdown(ctx context.Context) error { return s.http.Shutdown(ctx) }

func (s *Server) page(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, s.tracker.Snapshot())
}

func (s *Server) json(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(s.tracker.Snapshot()))
}
