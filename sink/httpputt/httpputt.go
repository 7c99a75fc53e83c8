// Package httpputt implements the HTTP putting-camera endpoint
// (SPEC_FULL.md §4): POST /putt accepts and logs putt payloads from an
// external putting-camera process, with GET /healthz and GET /metrics for
// operability. Putt payloads are not fed into shot normalisation since
// spec.md's shot schema covers full-swing metrics only.
package httpputt

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// PuttResult is the putting-camera's reported outcome for one putt.
type PuttResult struct {
	DistanceFt float64 `json:"distance_ft"`
	MadePutt  bool    `json:"made_putt"`
}

// Server exposes the putting-camera HTTP endpoint.
type Server struct {
	log    *logrus.Entry
	srv    *http.Server
}

// New constructs a Server bound to addr, not yet listening.
func New(addr string, log *logrus.Entry) *Server {
	log = log.WithField("sink", "httpputt")
	r := mux.NewRouter()

	s := &Server{log: log}

	r.HandleFunc("/putt", s.handlePutt).Methods(http.MethodPost)
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	return s
}

// ListenAndServe blocks serving HTTP until the server is shut down.
func (s *Server) ListenAndServe() error {
	s.log.WithField("addr", s.srv.Addr).Info("httpputt: listening")
	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handlePutt(w http.ResponseWriter, r *http.Request) {
	var result PuttResult
	if err := json.NewDecoder(r.Body).Decode(&result); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	s.log.WithField("distance_ft", result.DistanceFt).WithField("made_putt", result.MadePutt).Info("httpputt: putt received")
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
