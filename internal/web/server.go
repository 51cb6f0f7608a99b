// Package web provides an HTTP status server for the security-sensor daemon.
package web

import (
	"context"
	"image/png"
	"net"
	"net/http"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sweeney/security-sensor/internal/bitmap"
	"github.com/sweeney/security-sensor/internal/status"
)

const (
	defaultScale = 4
	maxScale     = 8
)

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
}

// New creates a Server that reads state from the given tracker.
func New(addr string, tracker *status.Tracker) *Server {
	s := &Server{tracker: tracker}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.HandleFunc("/frame.png", s.handleFrame)
	mux.Handle("/metrics", promhttp.Handler())

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// Handler returns the request router. Useful for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

// handleFrame renders the last published bitmap as a PNG, enlarged by the
// optional scale query parameter.
func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	frame, ok := s.tracker.Frame()
	if !ok {
		http.Error(w, "no frame published yet", http.StatusNotFound)
		return
	}

	scale := defaultScale
	if v := r.URL.Query().Get("scale"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxScale {
			http.Error(w, "scale must be 1-"+strconv.Itoa(maxScale), http.StatusBadRequest)
			return
		}
		scale = n
	}

	cfg := s.tracker.Snapshot().Config
	width, height := cfg.DisplayWidth, cfg.DisplayHeight
	if width == 0 || height == 0 {
		width, height = bitmap.Width, bitmap.Height
	}
	if len(frame.Data) != bitmap.Size(width, height) {
		http.Error(w, "frame does not match display size", http.StatusInternalServerError)
		return
	}

	img := imaging.Resize(bitmap.Image(frame.Data, width, height), width*scale, height*scale, imaging.NearestNeighbor)
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	png.Encode(w, img)
}
