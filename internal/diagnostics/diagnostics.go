// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package diagnostics exposes a read-only HTTP surface over a running
// server's schedule and subscription state. It is additive operator
// tooling, never consulted by the UDP protocol itself, and is disabled
// by default (the server starts it only when an HTTP address is set).
package diagnostics

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/jontk/reservation-protocol/internal/monitor"
	"github.com/jontk/reservation-protocol/internal/schedule"
	"github.com/jontk/reservation-protocol/pkg/metrics"
)

// Server is a read-only HTTP server over a schedule.Store, monitor.Registry,
// and metrics.Collector.
type Server struct {
	store    *schedule.Store
	registry *monitor.Registry
	metrics  metrics.Collector
	router   *mux.Router
	http     *http.Server
}

// New creates a diagnostics Server listening on addr (e.g. ":8080"). It
// does not start listening until Run is called.
func New(addr string, store *schedule.Store, registry *monitor.Registry, collector metrics.Collector) *Server {
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}
	s := &Server{store: store, registry: registry, metrics: collector}
	s.router = mux.NewRouter().StrictSlash(false)
	s.setupRoutes()
	s.http = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/facilities", s.handleFacilities).Methods(http.MethodGet)
	s.router.HandleFunc("/facilities/{name}/reservations", s.handleReservations).Methods(http.MethodGet)
	s.router.HandleFunc("/subscriptions", s.handleSubscriptions).Methods(http.MethodGet)
	s.router.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
}

// HandleFunc registers an additional route on the diagnostics router, for
// callers (such as the websocket dashboard mirror) that need to extend
// the surface beyond the built-in endpoints.
func (s *Server) HandleFunc(path string, handler http.HandlerFunc) {
	s.router.HandleFunc(path, handler)
}

// Run starts serving and blocks until the server is shut down.
func (s *Server) Run() error {
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Close shuts the server down.
func (s *Server) Close() error {
	return s.http.Close()
}

type facilityReservation struct {
	ID       string `json:"id"`
	StartMin int    `json:"startMin"`
	EndMin   int    `json:"endMin"`
	Owner    string `json:"owner"`
}

func (s *Server) handleFacilities(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]any{"facilities": s.store.Facilities()})
}

func (s *Server) handleReservations(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	reservations, err := s.store.Snapshot(name)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	out := make([]facilityReservation, len(reservations))
	for i, res := range reservations {
		out[i] = facilityReservation{ID: res.ID, StartMin: res.StartMin, EndMin: res.EndMin, Owner: res.Owner}
	}
	s.writeJSON(w, map[string]any{"facility": name, "reservations": out})
}

func (s *Server) handleSubscriptions(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]any{"activeSubscriptions": s.registry.Count(time.Now())})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.metrics.GetStats())
}

func (s *Server) writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
