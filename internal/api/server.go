// Package api exposes the simulation over HTTP. Handlers lock the shared
// engine mutex around every read and dispatch; the frame driver holds the
// same lock while advancing the clock.
package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/openskies-sim/airtycoon/internal/engine"
	"github.com/openskies-sim/airtycoon/internal/events"
	"github.com/openskies-sim/airtycoon/internal/infra/storage"
	"github.com/openskies-sim/airtycoon/internal/network"
	"github.com/openskies-sim/airtycoon/internal/platform/logger"
	"github.com/openskies-sim/airtycoon/internal/platform/metrics"
)

type Server struct {
	sim     *engine.Simulation
	mu      *sync.Mutex
	logger  *logger.Logger
	audit   *events.Log
	saves   *storage.SaveRepository
	hub     *network.Hub
	metrics *metrics.Collector
}

// Options carries the optional collaborators. Saves and Hub may be nil when
// running without a database or without observers.
type Options struct {
	Saves   *storage.SaveRepository
	Hub     *network.Hub
	Metrics *metrics.Collector
}

// New constructs the HTTP router wired to the simulation engine.
func New(sim *engine.Simulation, mu *sync.Mutex, log *logger.Logger, audit *events.Log, opts Options) http.Handler {
	s := &Server{
		sim:     sim,
		mu:      mu,
		logger:  log,
		audit:   audit,
		saves:   opts.Saves,
		hub:     opts.Hub,
		metrics: opts.Metrics,
	}
	r := chi.NewRouter()
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/state", s.handleState)
	r.Get("/companies/{id}", s.handleCompany)
	r.Get("/catalog/cities", s.handleCities)
	r.Get("/catalog/planes", s.handlePlanes)
	r.Get("/catalog/properties", s.handleProperties)
	r.Post("/actions", s.handleAction)
	r.Get("/events/pending", s.handlePendingEvents)
	r.Post("/events/choose", s.handleChooseOption)
	r.Get("/history", s.handleHistory)
	r.Post("/sim/pause", s.handlePause)
	r.Post("/sim/resume", s.handleResume)
	r.Post("/sim/speed", s.handleSpeed)
	r.Post("/analysis/route", s.handleRouteAnalysis)

	if s.saves != nil {
		r.Get("/saves", s.handleListSaves)
		r.Post("/save", s.handleSave)
		r.Post("/load", s.handleLoad)
	}
	if s.hub != nil {
		r.Get("/ws", s.hub.ServeWS)
	}
	if s.metrics != nil {
		r.Get("/metrics", s.metrics.Handler())
	}

	return r
}

// StateView is the aggregate snapshot served to clients each poll.
type StateView struct {
	Date      string           `json:"date"`
	Paused    bool             `json:"paused"`
	Speed     float64          `json:"speed"`
	PlayerID  string           `json:"player_id"`
	Companies []CompanySummary `json:"companies"`
	Pending   int              `json:"pending_events"`
}

type CompanySummary struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	IsPlayer bool    `json:"is_player"`
	Money    float64 `json:"money"`
	Fame     float64 `json:"fame"`
	Routes   int     `json:"routes"`
	Fleet    int     `json:"fleet"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	view := StateView{
		Date:     s.sim.Date().Format("2006-01-02"),
		Paused:   s.sim.Paused(),
		Speed:    s.sim.Speed(),
		PlayerID: s.sim.PlayerID(),
		Pending:  len(s.sim.PendingEvents()),
	}
	for _, c := range s.sim.Companies() {
		fleet := 0
		for _, n := range c.Fleet {
			fleet += n
		}
		view.Companies = append(view.Companies, CompanySummary{
			ID:       c.ID,
			Name:     c.Name,
			IsPlayer: c.IsPlayer,
			Money:    c.Money,
			Fame:     c.Fame,
			Routes:   len(c.Routes),
			Fleet:    fleet,
		})
	}
	s.mu.Unlock()

	writeJSON(w, view)
}

func (s *Server) handleCompany(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	c := s.sim.Company(id)
	var body []byte
	var err error
	if c != nil {
		body, err = json.Marshal(c)
	}
	s.mu.Unlock()

	if c == nil {
		writeJSONError(w, http.StatusNotFound, "unknown company "+id)
		return
	}
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

func (s *Server) handleCities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.sim.Catalog().Cities())
}

func (s *Server) handlePlanes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.sim.Catalog().Planes())
}

func (s *Server) handleProperties(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.sim.Catalog().Properties())
}

// actionRequest is the generic action envelope: a kind discriminator plus
// the kind-specific payload.
type actionRequest struct {
	CompanyID string          `json:"company_id"`
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad request")
		return
	}

	act, err := decodeAction(req.Kind, req.Payload)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	if req.CompanyID == "" {
		req.CompanyID = s.sim.PlayerID()
	}
	err = s.sim.Dispatch(req.CompanyID, act)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordAction(err)
	}
	if err != nil {
		writeJSONError(w, statusForActionError(err), err.Error())
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func decodeAction(kind string, payload json.RawMessage) (engine.Action, error) {
	unmarshal := func(v interface{}) error {
		if len(payload) == 0 {
			return errors.New("missing payload")
		}
		return json.Unmarshal(payload, v)
	}
	switch kind {
	case "addRoute":
		var a engine.AddRoute
		return a, unmarshal(&a)
	case "updateRoute":
		var a engine.UpdateRoute
		return a, unmarshal(&a)
	case "deleteRoute":
		var a engine.DeleteRoute
		return a, unmarshal(&a)
	case "buyPlane":
		var a engine.BuyPlane
		return a, unmarshal(&a)
	case "updateEfforts":
		var a engine.UpdateEfforts
		return a, unmarshal(&a)
	case "buyProperty":
		var a engine.BuyProperty
		return a, unmarshal(&a)
	case "sellProperty":
		var a engine.SellProperty
		return a, unmarshal(&a)
	default:
		return nil, errors.New("unknown action kind " + kind)
	}
}

func statusForActionError(err error) int {
	switch {
	case errors.Is(err, engine.ErrUnknownEntity):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrInsufficientFunds),
		errors.Is(err, engine.ErrDuplicateProperty),
		errors.Is(err, engine.ErrRouteConstraint),
		errors.Is(err, engine.ErrInvalidPayload):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handlePendingEvents(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	pending := s.sim.PendingEvents()
	type pendingView struct {
		EventID   string           `json:"event_id"`
		CompanyID string           `json:"company_id"`
		FiredAt   string           `json:"fired_at"`
		Title     string           `json:"title"`
		Text      string           `json:"text"`
		Options   []map[string]any `json:"options"`
	}
	out := make([]pendingView, 0, len(pending))
	for _, p := range pending {
		ev, ok := s.sim.Catalog().Event(p.EventID)
		if !ok {
			continue
		}
		view := pendingView{
			EventID:   p.EventID,
			CompanyID: p.CompanyID,
			FiredAt:   p.FiredAt.Format("2006-01-02"),
			Title:     ev.Title,
			Text:      ev.Text,
		}
		for i, opt := range ev.Options {
			view.Options = append(view.Options, map[string]any{"index": i, "label": opt.Label})
		}
		out = append(out, view)
	}
	s.mu.Unlock()

	writeJSON(w, out)
}

func (s *Server) handleChooseOption(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EventID string `json:"event_id"`
		Option  int    `json:"option"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.EventID == "" {
		writeJSONError(w, http.StatusBadRequest, "bad request")
		return
	}

	s.mu.Lock()
	err := s.sim.ChooseOption(req.EventID, req.Option)
	s.mu.Unlock()

	if err != nil {
		writeJSONError(w, statusForActionError(err), err.Error())
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

// handleHistory serves the audit log, optionally filtered by company.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	companyID := r.URL.Query().Get("company")
	var out []events.SimEvent
	if companyID != "" {
		out = s.audit.ByCompany(companyID)
	} else {
		out = s.audit.Since(0)
	}
	writeJSON(w, out)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.sim.SetPaused(true)
	s.mu.Unlock()
	s.handleState(w, r)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.sim.SetPaused(false)
	s.mu.Unlock()
	s.handleState(w, r)
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Speed float64 `json:"speed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Speed <= 0 {
		writeJSONError(w, http.StatusBadRequest, "bad request")
		return
	}
	s.mu.Lock()
	s.sim.SetSpeed(req.Speed)
	s.mu.Unlock()
	s.handleState(w, r)
}

// handleRouteAnalysis previews the best frequency and price for a candidate
// route without opening it.
func (s *Server) handleRouteAnalysis(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CompanyID   string `json:"company_id"`
		SourceID    string `json:"source_id"`
		TargetID    string `json:"target_id"`
		PlaneTypeID string `json:"plane_type_id"`
		Assigned    int    `json:"assigned_count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad request")
		return
	}
	if req.Assigned <= 0 {
		req.Assigned = 1
	}

	s.mu.Lock()
	if req.CompanyID == "" {
		req.CompanyID = s.sim.PlayerID()
	}
	c := s.sim.Company(req.CompanyID)
	var advice engine.RouteAdvice
	var err error
	if c == nil {
		err = engine.ErrUnknownEntity
	} else {
		advice, err = s.sim.OptimizeRoute(c, req.SourceID, req.TargetID, req.PlaneTypeID, req.Assigned)
	}
	s.mu.Unlock()

	if err != nil {
		writeJSONError(w, statusForActionError(err), err.Error())
		return
	}
	writeJSON(w, advice)
}

func (s *Server) handleListSaves(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	records, err := s.saves.List(ctx)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, records)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Slot string `json:"slot"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Slot == "" {
		writeJSONError(w, http.StatusBadRequest, "bad request")
		return
	}

	s.mu.Lock()
	snap := s.sim.Snapshot()
	s.mu.Unlock()

	blob, err := json.Marshal(snap)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	err = s.saves.Upsert(ctx, storage.SaveRecord{
		Slot:     req.Slot,
		SimDate:  snap.Date,
		SavedAt:  time.Now().UTC(),
		Snapshot: blob,
	})
	if s.metrics != nil {
		s.metrics.RecordSnapshot(err)
	}
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("game saved to slot " + req.Slot)
	writeJSON(w, map[string]string{"status": "ok", "slot": req.Slot})
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Slot string `json:"slot"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Slot == "" {
		writeJSONError(w, http.StatusBadRequest, "bad request")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	rec, err := s.saves.Load(ctx, req.Slot)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSONError(w, http.StatusNotFound, "no save in slot "+req.Slot)
			return
		}
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var snap engine.Snapshot
	if err := json.Unmarshal(rec.Snapshot, &snap); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "corrupt save: "+err.Error())
		return
	}

	s.mu.Lock()
	err = s.sim.Restore(snap)
	s.mu.Unlock()

	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("game restored from slot " + req.Slot)
	s.handleState(w, r)
}

// ===== helpers =====

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	if msg == "" {
		msg = http.StatusText(status)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
