package engine

import (
	"time"

	"github.com/openskies-sim/airtycoon/internal/events"
)

// TaskKind categorizes a delayed effect.
type TaskKind string

// TaskPlaneDelivery credits purchased aircraft to the fleet on the due date.
const TaskPlaneDelivery TaskKind = "PLANE_DELIVERY"

// DeliveryLeadDays is how long a delayed aircraft order takes to arrive.
const DeliveryLeadDays = 60

// Task is a generic delayed-effect record consumed by the clock once due.
type Task struct {
	ID          string    `json:"id"`
	Kind        TaskKind  `json:"kind"`
	CompanyID   string    `json:"company_id"`
	PlaneTypeID string    `json:"plane_type_id,omitempty"`
	Count       int       `json:"count,omitempty"`
	Due         time.Time `json:"due"`
}

func (s *Simulation) enqueueTask(t Task) {
	t.ID = s.newID("T")
	s.tasks = append(s.tasks, t)
}

// completeDueTasks runs phase 1 of a day: apply and remove every task whose
// due date has arrived.
func (s *Simulation) completeDueTasks() {
	remaining := s.tasks[:0]
	for _, t := range s.tasks {
		if t.Due.After(s.date) {
			remaining = append(remaining, t)
			continue
		}
		s.completeTask(t)
	}
	s.tasks = remaining
}

func (s *Simulation) completeTask(t Task) {
	switch t.Kind {
	case TaskPlaneDelivery:
		c := s.companies[t.CompanyID]
		if c == nil {
			s.log.Warn("delivery task for unknown company " + t.CompanyID)
			return
		}
		c.Fleet[t.PlaneTypeID] += t.Count
		s.appendAudit(events.SimEvent{
			Type:      events.TypeTaskCompleted,
			CompanyID: t.CompanyID,
			Payload:   t,
		})
		s.log.Event("DELIVERY", t.CompanyID, t.PlaneTypeID)
	default:
		s.log.Warn("unknown task kind " + string(t.Kind))
	}
}
