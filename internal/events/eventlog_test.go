package events

import (
	"errors"
	"testing"
)

type capturePersister struct {
	got  []SimEvent
	fail bool
}

func (p *capturePersister) Append(e SimEvent) error {
	if p.fail {
		return errors.New("disk full")
	}
	p.got = append(p.got, e)
	return nil
}

func TestAppendFillsIdentity(t *testing.T) {
	l := NewLog(nil)
	l.Append(SimEvent{Type: TypeWeekClosed, CompanyID: "c1"})

	got := l.Since(0)
	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	if got[0].ID == "" {
		t.Errorf("append should assign an id")
	}
	if got[0].Timestamp.IsZero() {
		t.Errorf("append should stamp the wall clock")
	}
}

func TestSinceCursor(t *testing.T) {
	l := NewLog(nil)
	for i := 0; i < 5; i++ {
		l.Append(SimEvent{Type: TypeAIDecision})
	}

	if got := l.Since(3); len(got) != 2 {
		t.Errorf("Since(3) on 5 events: expected 2, got %d", len(got))
	}
	if got := l.Since(5); got != nil {
		t.Errorf("cursor at the end should yield nil, got %d events", len(got))
	}
	if l.Len() != 5 {
		t.Errorf("Len: expected 5, got %d", l.Len())
	}
}

func TestQueriesFilter(t *testing.T) {
	l := NewLog(nil)
	l.Append(SimEvent{Type: TypeWeekClosed, CompanyID: "c1"})
	l.Append(SimEvent{Type: TypeEventFired, CompanyID: "c2"})
	l.Append(SimEvent{Type: TypeWeekClosed, CompanyID: "c2"})

	if got := l.ByCompany("c2"); len(got) != 2 {
		t.Errorf("ByCompany(c2): expected 2, got %d", len(got))
	}
	if got := l.ByType(TypeWeekClosed); len(got) != 2 {
		t.Errorf("ByType(WEEK_CLOSED): expected 2, got %d", len(got))
	}
	if got := l.ByType(TypeAutosave); len(got) != 0 {
		t.Errorf("ByType(AUTOSAVE): expected 0, got %d", len(got))
	}
}

func TestPersisterWriteThrough(t *testing.T) {
	p := &capturePersister{}
	l := NewLog(p)
	l.Append(SimEvent{Type: TypeEventFired, CompanyID: "c1"})

	if len(p.got) != 1 || p.got[0].CompanyID != "c1" {
		t.Fatalf("event not written through: %+v", p.got)
	}
	if p.got[0].ID == "" {
		t.Errorf("persisted event lacks the assigned id")
	}
}

func TestPersisterFailureKeepsMemoryLog(t *testing.T) {
	l := NewLog(&capturePersister{fail: true})
	l.Append(SimEvent{Type: TypeEventFired})

	if l.Len() != 1 {
		t.Errorf("a persistence failure must not drop the in-memory record")
	}
}
