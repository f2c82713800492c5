package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/openskies-sim/airtycoon/internal/domain/catalog"
	"github.com/openskies-sim/airtycoon/internal/domain/company"
	"github.com/openskies-sim/airtycoon/internal/events"
)

// ScheduledEvent is one pending occurrence of a catalog event for one
// company. At most one live entry exists per (event, company) pair.
type ScheduledEvent struct {
	EventID   string    `json:"event_id"`
	CompanyID string    `json:"company_id"`
	Due       time.Time `json:"due"`
}

// PendingEvent is a fired player-facing event awaiting a modal choice. The
// calendar does not advance while any of these exist.
type PendingEvent struct {
	EventID   string    `json:"event_id"`
	CompanyID string    `json:"company_id"`
	FiredAt   time.Time `json:"fired_at"`
}

// maxChainDepth bounds triggerEvent chains so a miswritten catalog cannot
// recurse forever.
const maxChainDepth = 8

func firedKey(eventID, companyID string) string {
	return eventID + "|" + companyID
}

func (s *Simulation) hasScheduled(eventID, companyID string) bool {
	for _, e := range s.schedule {
		if e.EventID == eventID && e.CompanyID == companyID {
			return true
		}
	}
	return false
}

// scheduleDeckFor draws a first occurrence date of every catalog event for
// one company, skipping retired one-time pairs and events whose window has
// already closed.
func (s *Simulation) scheduleDeckFor(companyID string) {
	for _, ev := range s.cat.Events() {
		if s.fired[firedKey(ev.ID, companyID)] || s.hasScheduled(ev.ID, companyID) {
			continue
		}
		if due, ok := s.sampleOccurrence(ev); ok {
			s.schedule = append(s.schedule, ScheduledEvent{EventID: ev.ID, CompanyID: companyID, Due: due})
		}
	}
}

// sampleOccurrence draws the next due date for an event according to its
// declared scheduling mode.
func (s *Simulation) sampleOccurrence(ev catalog.GameEvent) (time.Time, bool) {
	switch ev.Mode {
	case catalog.ScheduleWindow:
		start := ev.Start
		if start.Before(s.date) {
			start = s.date
		}
		if ev.End.Before(start) {
			return time.Time{}, false // window already closed
		}
		spanDays := int(ev.End.Sub(start).Hours()/24) + 1
		return start.AddDate(0, 0, s.rng.Intn(spanDays)), true
	case catalog.ScheduleMTTH:
		mtth := ev.MTTH
		if mtth <= 0 {
			return time.Time{}, false
		}
		// Exponential draw around the mean time to happen, at least one day
		// out so an event never fires in the tick that scheduled it.
		days := -mtth * math.Log(1-s.rng.Float64())
		if days < 1 {
			days = 1
		}
		due := s.date.AddDate(0, 0, int(days))
		if !ev.Start.IsZero() && due.Before(ev.Start) {
			due = ev.Start
		}
		if !ev.End.IsZero() && due.After(ev.End) {
			return time.Time{}, false
		}
		return due, true
	default:
		return time.Time{}, false
	}
}

// evaluateDueEvents runs phase 2 of a day: every scheduled entry whose date
// has arrived is taken off the schedule and checked against its triggers.
//
// One-time events are retired on the due check itself, whether or not the
// predicates pass: a one-time event rejected at its sampled moment is
// silently lost forever. Repeatable events always get a fresh occurrence
// date after being due, pass or fail.
func (s *Simulation) evaluateDueEvents() {
	remaining := s.schedule[:0]
	var due []ScheduledEvent
	for _, e := range s.schedule {
		if e.Due.After(s.date) {
			remaining = append(remaining, e)
		} else {
			due = append(due, e)
		}
	}
	s.schedule = remaining

	for _, e := range due {
		s.processDueEvent(e, 0)
	}
}

func (s *Simulation) processDueEvent(e ScheduledEvent, depth int) {
	ev, okEv := s.cat.Event(e.EventID)
	c := s.companies[e.CompanyID]
	if !okEv || c == nil {
		return
	}

	if ev.OneTime {
		// A pair retired earlier (e.g. through a chain) may still have a
		// stale schedule entry; it must never fire twice.
		if s.fired[firedKey(ev.ID, c.ID)] {
			return
		}
		s.fired[firedKey(ev.ID, c.ID)] = true
	}

	if s.triggersPass(ev.Trigger, c) && ev.InWindow(s.date) {
		s.fireEvent(ev, c, depth)
	}

	// A chained event may reach here while its own sampled occurrence is
	// still live; never stack a second entry for the pair.
	if !ev.OneTime && !s.hasScheduled(ev.ID, c.ID) {
		if next, ok := s.sampleOccurrence(ev); ok {
			s.schedule = append(s.schedule, ScheduledEvent{EventID: ev.ID, CompanyID: c.ID, Due: next})
		}
	}
}

// triggersPass evaluates the predicate set read-only against the company.
func (s *Simulation) triggersPass(tr catalog.Trigger, c *company.Company) bool {
	if tr.MinCash != nil && c.Money < *tr.MinCash {
		return false
	}
	if tr.MaxCash != nil && c.Money > *tr.MaxCash {
		return false
	}
	if tr.MinFame != nil && c.Fame < *tr.MinFame {
		return false
	}
	if tr.MaxFame != nil && c.Fame > *tr.MaxFame {
		return false
	}
	if tr.MinRoutes != nil && len(c.Routes) < *tr.MinRoutes {
		return false
	}
	if tr.MaxRoutes != nil && len(c.Routes) > *tr.MaxRoutes {
		return false
	}
	if tr.MinFleet != nil {
		fleet := 0
		for _, n := range c.Fleet {
			fleet += n
		}
		if fleet < *tr.MinFleet {
			return false
		}
	}
	return true
}

// fireEvent delivers an event that passed its triggers. The player gets it
// queued for modal display, which freezes the clock until dismissed; an AI
// company picks an option uniformly at random and applies it immediately.
func (s *Simulation) fireEvent(ev catalog.GameEvent, c *company.Company, depth int) {
	if c.IsPlayer {
		s.pending = append(s.pending, PendingEvent{EventID: ev.ID, CompanyID: c.ID, FiredAt: s.date})
		s.appendAudit(events.SimEvent{
			Type:      events.TypeEventPending,
			CompanyID: c.ID,
			Payload:   ev.ID,
		})
		s.log.Event("EVENT_PENDING", c.ID, ev.Title)
		return
	}

	choice := s.rng.Intn(len(ev.Options))
	s.applyOption(ev, choice, c, depth)
}

// applyOption dispatches every effect of the chosen option against the
// company the event fired for.
func (s *Simulation) applyOption(ev catalog.GameEvent, choice int, c *company.Company, depth int) {
	opt := ev.Options[choice]
	for _, eff := range opt.Effects {
		if eff.Kind == catalog.EffectTriggerEvent {
			s.chainEvent(eff.EventID, c, depth+1)
			continue
		}
		if err := s.Dispatch(c.ID, ApplyEventEffect{Effect: eff, FiredAt: s.date}); err != nil {
			s.log.Warn(fmt.Sprintf("event %s effect rejected for %s: %v", ev.ID, c.ID, err))
		}
	}
	s.appendAudit(events.SimEvent{
		Type:      events.TypeEventFired,
		CompanyID: c.ID,
		Payload:   map[string]interface{}{"event_id": ev.ID, "option": choice},
	})
	s.log.Event("EVENT_FIRED", c.ID, ev.Title+" -> "+opt.Label)
}

// chainEvent processes a triggered follow-up event immediately, as if it had
// just come due for the same company.
func (s *Simulation) chainEvent(eventID string, c *company.Company, depth int) {
	if depth > maxChainDepth {
		s.log.Warn("event chain too deep, dropping " + eventID)
		return
	}
	if s.fired[firedKey(eventID, c.ID)] {
		return
	}
	s.processDueEvent(ScheduledEvent{EventID: eventID, CompanyID: c.ID, Due: s.date}, depth)
}

// PendingEvents returns the player-facing events waiting for a choice.
func (s *Simulation) PendingEvents() []PendingEvent {
	return append([]PendingEvent(nil), s.pending...)
}

// ChooseOption resolves the oldest pending player event with the given
// option index and unfreezes the calendar once the queue drains.
func (s *Simulation) ChooseOption(eventID string, option int) error {
	for i, p := range s.pending {
		if p.EventID != eventID {
			continue
		}
		ev, ok := s.cat.Event(p.EventID)
		if !ok {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return fmt.Errorf("pending event %s: %w", eventID, ErrUnknownEntity)
		}
		if option < 0 || option >= len(ev.Options) {
			return fmt.Errorf("option %d of event %s: %w", option, eventID, ErrInvalidPayload)
		}
		c := s.companies[p.CompanyID]
		s.pending = append(s.pending[:i], s.pending[i+1:]...)
		if c != nil {
			s.applyOption(ev, option, c, 0)
		}
		return nil
	}
	return fmt.Errorf("no pending event %s: %w", eventID, ErrUnknownEntity)
}
