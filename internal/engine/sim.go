// Package engine contains the simulation loop and the airline economy logic.
//
// ARCHITECTURAL RULE: all mutable game state lives inside Simulation, which is
// an explicit context object owned by the host. Nothing in this package keeps
// ambient globals, so multiple independent simulations can run in one process.
package engine

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/openskies-sim/airtycoon/internal/domain/catalog"
	"github.com/openskies-sim/airtycoon/internal/domain/company"
	"github.com/openskies-sim/airtycoon/internal/events"
	"github.com/openskies-sim/airtycoon/internal/platform/logger"
)

// Config tunes the simulation clock.
type Config struct {
	// MSPerDay is how many accumulated wall-clock milliseconds (at speed 1)
	// make one in-game day.
	MSPerDay float64
	// Speed is the initial speed multiplier.
	Speed float64
	// Start is the initial calendar date.
	Start time.Time
	// Seed initializes the injected PRNG. Fixed seeds reproduce exact event
	// schedules and AI choices.
	Seed int64
}

// DefaultConfig starts a simulation on 1960-01-01 with one second per day.
func DefaultConfig() Config {
	return Config{
		MSPerDay: 1000,
		Speed:    1,
		Start:    time.Date(1960, 1, 1, 0, 0, 0, 0, time.UTC),
		Seed:     time.Now().UnixNano(),
	}
}

// Simulation is the single-threaded state container driving the airline
// economy. The host calls Advance at whatever cadence it likes; all phases of
// a day run to completion synchronously inside that call.
type Simulation struct {
	log   *logger.Logger
	cat   *catalog.Catalog
	rng   *rand.Rand
	audit *events.Log

	properties PropertyFinancer

	msPerDay float64
	accumMS  float64
	speed    float64
	paused   bool
	date     time.Time

	companies map[string]*company.Company
	order     []string // stable iteration order across phases
	playerID  string

	tasks    []Task
	schedule []ScheduledEvent
	fired    map[string]bool // retired one-time (event, company) pairs
	pending  []PendingEvent  // player-facing events awaiting dismissal

	nextID int64

	// onAutosave, when set, receives a snapshot at every Jan-1 boundary.
	onAutosave func(Snapshot)
}

// New builds an empty simulation over the given catalog. audit may be nil.
func New(cat *catalog.Catalog, cfg Config, log *logger.Logger, audit *events.Log) *Simulation {
	if cfg.MSPerDay <= 0 {
		cfg.MSPerDay = 1000
	}
	if cfg.Speed <= 0 {
		cfg.Speed = 1
	}
	return &Simulation{
		log:        log,
		cat:        cat,
		rng:        rand.New(rand.NewSource(cfg.Seed)),
		audit:      audit,
		properties: StandardPropertyFinance{},
		msPerDay:   cfg.MSPerDay,
		speed:      cfg.Speed,
		date:       cfg.Start,
		companies:  make(map[string]*company.Company),
		fired:      make(map[string]bool),
	}
}

// SetPropertyFinancer swaps the external property valuation routine.
func (s *Simulation) SetPropertyFinancer(f PropertyFinancer) {
	if f != nil {
		s.properties = f
	}
}

// SetAutosaveHook registers the host callback fired at year boundaries.
func (s *Simulation) SetAutosaveHook(fn func(Snapshot)) {
	s.onAutosave = fn
}

// AddCompany registers an airline and schedules the event deck for it.
// The first player company becomes the modal-event target.
func (s *Simulation) AddCompany(c *company.Company) {
	s.companies[c.ID] = c
	s.order = append(s.order, c.ID)
	if c.IsPlayer && s.playerID == "" {
		s.playerID = c.ID
	}
	s.scheduleDeckFor(c.ID)
}

// Company returns an airline by id.
func (s *Simulation) Company(id string) *company.Company {
	return s.companies[id]
}

// Companies returns every airline in registration order.
func (s *Simulation) Companies() []*company.Company {
	out := make([]*company.Company, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.companies[id])
	}
	return out
}

// PlayerID returns the id of the player-controlled airline, or empty when
// every company is autonomous.
func (s *Simulation) PlayerID() string {
	return s.playerID
}

// Catalog exposes the read-only content tables.
func (s *Simulation) Catalog() *catalog.Catalog {
	return s.cat
}

// Date returns the current in-game date.
func (s *Simulation) Date() time.Time {
	return s.date
}

// Paused reports whether calendar advancement is halted.
func (s *Simulation) Paused() bool {
	return s.paused
}

// SetPaused halts or resumes calendar advancement.
func (s *Simulation) SetPaused(paused bool) {
	s.paused = paused
}

// Speed returns the current speed multiplier.
func (s *Simulation) Speed() float64 {
	return s.speed
}

// SetSpeed adjusts the speed multiplier. Non-positive values are ignored.
func (s *Simulation) SetSpeed(speed float64) {
	if speed > 0 {
		s.speed = speed
	}
}

// gated reports whether the calendar may not advance right now: explicit
// pause, or a modal event waiting for the player.
func (s *Simulation) gated() bool {
	return s.paused || len(s.pending) > 0
}

// Advance feeds elapsed wall-clock milliseconds into the simulation and runs
// every in-game day that became due. It is the only entry point the host
// loop needs; any cadence works.
//
// A panic inside a day's processing is caught here: the simulation
// auto-pauses and the host loop keeps running.
func (s *Simulation) Advance(deltaMS float64) {
	defer func() {
		if r := recover(); r != nil {
			s.paused = true
			s.log.Error(fmt.Sprintf("tick panic, simulation auto-paused: %v", r))
			s.appendAudit(events.SimEvent{
				Type:    events.TypeSimPaused,
				Payload: fmt.Sprintf("%v", r),
			})
		}
	}()

	if s.gated() {
		return
	}
	s.accumMS += deltaMS * s.speed
	for s.accumMS >= s.msPerDay {
		// A modal event fired mid-advance freezes the remaining days; the
		// leftover accumulation is retained for after dismissal.
		if s.gated() {
			break
		}
		s.accumMS -= s.msPerDay
		s.advanceDay()
	}
}

// advanceDay runs the fixed phase order for one calendar day:
// tasks -> events -> weekly finance -> monthly AI -> yearly autosave.
// Each phase observes all writes of the phases before it.
func (s *Simulation) advanceDay() {
	prev := s.date
	s.date = prev.AddDate(0, 0, 1)

	s.completeDueTasks()
	s.evaluateDueEvents()

	if isoWeekChanged(prev, s.date) {
		s.runWeeklyFinance()
	}
	if prev.Month() != s.date.Month() || prev.Year() != s.date.Year() {
		s.runMonthlyAI()
	}
	if prev.Year() != s.date.Year() {
		s.autosave()
	}
}

func (s *Simulation) autosave() {
	if s.onAutosave == nil {
		return
	}
	s.onAutosave(s.Snapshot())
	s.appendAudit(events.SimEvent{Type: events.TypeAutosave})
	s.log.Info("autosave triggered at year boundary " + strconv.Itoa(s.date.Year()))
}

func isoWeekChanged(prev, next time.Time) bool {
	py, pw := prev.ISOWeek()
	ny, nw := next.ISOWeek()
	return py != ny || pw != nw
}

// newID mints a deterministic entity id. Kept sequential (not random) so a
// seeded simulation produces identical route and task ids run after run.
func (s *Simulation) newID(prefix string) string {
	s.nextID++
	return prefix + "-" + strconv.FormatInt(s.nextID, 10)
}

func (s *Simulation) appendAudit(e events.SimEvent) {
	if s.audit == nil {
		return
	}
	e.SimDate = s.date
	s.audit.Append(e)
}

// Snapshot captures the whole simulation as a flat, self-contained record:
// date, companies, task queue, scheduled events, retired one-time pairs.
// Restoring it resumes the run with no hidden state left behind.
type Snapshot struct {
	Date      time.Time          `json:"date"`
	AccumMS   float64            `json:"accum_ms"`
	Speed     float64            `json:"speed"`
	Paused    bool               `json:"paused"`
	PlayerID  string             `json:"player_id"`
	Companies []*company.Company `json:"companies"`
	Tasks     []Task             `json:"tasks"`
	Schedule  []ScheduledEvent   `json:"schedule"`
	Fired     []string           `json:"fired"`
	Pending   []PendingEvent     `json:"pending"`
	NextID    int64              `json:"next_id"`
}

// Snapshot returns a deep copy of the current state.
func (s *Simulation) Snapshot() Snapshot {
	snap := Snapshot{
		Date:     s.date,
		AccumMS:  s.accumMS,
		Speed:    s.speed,
		Paused:   s.paused,
		PlayerID: s.playerID,
		Tasks:    append([]Task(nil), s.tasks...),
		Schedule: append([]ScheduledEvent(nil), s.schedule...),
		Pending:  append([]PendingEvent(nil), s.pending...),
		NextID:   s.nextID,
	}
	for _, id := range s.order {
		snap.Companies = append(snap.Companies, cloneCompany(s.companies[id]))
	}
	for key := range s.fired {
		snap.Fired = append(snap.Fired, key)
	}
	return snap
}

// Restore replaces the simulation state with a snapshot.
func (s *Simulation) Restore(snap Snapshot) error {
	companies := make(map[string]*company.Company, len(snap.Companies))
	order := make([]string, 0, len(snap.Companies))
	for _, c := range snap.Companies {
		if c == nil || c.ID == "" {
			return fmt.Errorf("snapshot contains invalid company record")
		}
		clone := cloneCompany(c)
		companies[clone.ID] = clone
		order = append(order, clone.ID)
	}

	s.date = snap.Date
	s.accumMS = snap.AccumMS
	if snap.Speed > 0 {
		s.speed = snap.Speed
	}
	s.paused = snap.Paused
	s.playerID = snap.PlayerID
	s.companies = companies
	s.order = order
	s.tasks = append([]Task(nil), snap.Tasks...)
	s.schedule = append([]ScheduledEvent(nil), snap.Schedule...)
	s.pending = append([]PendingEvent(nil), snap.Pending...)
	s.nextID = snap.NextID
	s.fired = make(map[string]bool, len(snap.Fired))
	for _, key := range snap.Fired {
		s.fired[key] = true
	}

	// Companies added after the snapshot's deck was drawn would miss their
	// schedule entries otherwise.
	for _, id := range s.order {
		s.scheduleDeckFor(id)
	}
	return nil
}

// cloneCompany deep-copies a company via JSON round trip. Company records are
// replaced wholesale on restore, never merged field by field.
func cloneCompany(c *company.Company) *company.Company {
	data, err := json.Marshal(c)
	if err != nil {
		panic(fmt.Sprintf("company not serializable: %v", err))
	}
	var out company.Company
	if err := json.Unmarshal(data, &out); err != nil {
		panic(fmt.Sprintf("company clone failed: %v", err))
	}
	if out.Fleet == nil {
		out.Fleet = make(map[string]int)
	}
	return &out
}
