package engine

import (
	"testing"

	"github.com/openskies-sim/airtycoon/internal/domain/catalog"
	"github.com/openskies-sim/airtycoon/internal/domain/company"
	"github.com/openskies-sim/airtycoon/internal/domain/modifier"
	"github.com/openskies-sim/airtycoon/internal/events"
)

// seedAirline registers a company with one jet on the A-B leg.
func seedAirline(t *testing.T, s *Simulation, id string) *company.Company {
	t.Helper()
	c := company.New(id, "Airline "+id, "A", 1000000)
	s.AddCompany(c)
	if err := s.Dispatch(id, BuyPlane{PlaneTypeID: "jet"}); err != nil {
		t.Fatalf("buyPlane: %v", err)
	}
	if err := s.Dispatch(id, AddRoute{SourceID: "A", TargetID: "B", PlaneTypeID: "jet",
		AssignedCount: 1, Frequency: 10}); err != nil {
		t.Fatalf("addRoute: %v", err)
	}
	return c
}

func TestWeeklyFinanceMoneyIdentity(t *testing.T) {
	s, audit := testSim(t, nil, 1)
	c := seedAirline(t, s, "c1")
	before := c.Money

	// 1960-01-04 is the first ISO week boundary after the start date.
	advanceDays(s, 3)

	closed := audit.ByType(events.TypeWeekClosed)
	if len(closed) != 1 {
		t.Fatalf("expected exactly one weekly close, got %d", len(closed))
	}

	p := c.LastPeriod
	if c.Money != before+p.NetIncome {
		t.Errorf("money identity broken: %v != %v + %v", c.Money, before, p.NetIncome)
	}

	wantNet := p.Revenue + p.PropertyIncome -
		(p.FlightCost + p.MaintCost + p.IdleCost + p.PRSpend + p.PropertyCost)
	if p.NetIncome != wantNet {
		t.Errorf("net income formula broken: %v != %v", p.NetIncome, wantNet)
	}
	if p.Revenue <= 0 {
		t.Errorf("a staffed profitable route should produce revenue, got %v", p.Revenue)
	}
}

func TestWeeklyFinanceRunsOncePerISOWeek(t *testing.T) {
	s, audit := testSim(t, nil, 1)
	seedAirline(t, s, "c1")

	// Jan 1..Jan 31 1960 crosses the boundaries on Jan 4, 11, 18 and 25.
	advanceDays(s, 30)

	closed := audit.ByType(events.TypeWeekClosed)
	if len(closed) != 4 {
		t.Errorf("expected 4 weekly closes in January 1960, got %d", len(closed))
	}
}

func TestIdleFleetCosts(t *testing.T) {
	s, _ := testSim(t, nil, 1)
	c := company.New("c1", "Idle Air", "A", 1000000)
	s.AddCompany(c)
	if err := s.Dispatch("c1", BuyPlane{PlaneTypeID: "jet"}); err != nil {
		t.Fatalf("buyPlane: %v", err)
	}

	advanceDays(s, 3)

	if c.LastPeriod.IdleCost != 200 {
		t.Errorf("one idle jet should cost its weekly idle rate, got %v", c.LastPeriod.IdleCost)
	}
	if c.LastPeriod.Revenue != 0 {
		t.Errorf("no routes means no revenue, got %v", c.LastPeriod.Revenue)
	}
}

func TestRouteWithUnknownCatalogIDsIsIsolated(t *testing.T) {
	s, _ := testSim(t, nil, 1)
	c := seedAirline(t, s, "c1")

	// A stale route referencing a plane type removed from the catalog.
	c.Routes = append(c.Routes, &company.Route{
		ID: "stale", SourceID: "A", TargetID: "B", PlaneTypeID: "ghost",
		AssignedCount: 1, Frequency: 5,
	})

	advanceDays(s, 3)

	stale := c.Route("stale")
	if stale.Stats.Revenue != 0 || stale.Stats.FlightCost != 0 {
		t.Errorf("unknown catalog ids should zero the route stats, got %+v", stale.Stats)
	}
	// The healthy route still produced.
	if c.Routes[0].Stats.Revenue <= 0 {
		t.Errorf("data error on one route starved the others: %+v", c.Routes[0].Stats)
	}
}

func TestDerivedFameModifierReplanted(t *testing.T) {
	s, _ := testSim(t, nil, 1)
	c := seedAirline(t, s, "c1")

	advanceDays(s, 3)

	found := false
	for _, m := range c.Modifiers.Active {
		if m.ID == "derived-fame-c1" {
			found = true
			if m.Channel != modifier.ChannelLoadFactor {
				t.Errorf("fame modifier on wrong channel: %s", m.Channel)
			}
		}
	}
	if !found {
		t.Fatalf("weekly finance did not plant the fame-derived load factor modifier")
	}

	// Replanted, not accumulated: a second close keeps a single entry.
	advanceDays(s, 7)
	count := 0
	for _, m := range c.Modifiers.Active {
		if m.ID == "derived-fame-c1" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected exactly one fame modifier after two closes, got %d", count)
	}
}

func TestPropertyDerivedModifiersAndFinance(t *testing.T) {
	s, _ := testSim(t, nil, 1)
	c := seedAirline(t, s, "c1")
	if err := s.Dispatch("c1", BuyProperty{TypeID: "lounge", CityID: "A"}); err != nil {
		t.Fatalf("buyProperty: %v", err)
	}

	advanceDays(s, 3)

	// Income: city A Biz 80 * multiplier 100; cost: fixed maintenance.
	if c.LastPeriod.PropertyIncome != 8000 {
		t.Errorf("expected property income 8000, got %v", c.LastPeriod.PropertyIncome)
	}
	if c.LastPeriod.PropertyCost != 1000 {
		t.Errorf("expected property cost 1000, got %v", c.LastPeriod.PropertyCost)
	}

	// Both endpoint directions get a scoped load-factor bonus.
	var src, tgt bool
	for _, m := range c.Modifiers.Active {
		switch m.ID {
		case "derived-prop-lounge-A-src":
			src = m.Scope.SourceID == "A" && m.Value == 0.05
		case "derived-prop-lounge-A-tgt":
			tgt = m.Scope.TargetID == "A" && m.Value == 0.05
		}
	}
	if !src || !tgt {
		t.Errorf("property bonus modifiers missing or misscoped: src=%v tgt=%v", src, tgt)
	}
}

func TestSeededRunsAreIdentical(t *testing.T) {
	evs := []catalog.GameEvent{{
		ID: "turbulence", Title: "Turbulence", Mode: catalog.ScheduleMTTH, MTTH: 20,
		Options: []catalog.Option{
			{Label: "a", Effects: []catalog.Effect{{Kind: catalog.EffectMoney, Amount: -5000}}},
			{Label: "b", Effects: []catalog.Effect{{Kind: catalog.EffectFame, Amount: -2}}},
		},
	}}

	run := func() (float64, float64, int) {
		s, _ := testSim(t, evs, 12345)
		c := seedAirline(t, s, "c1")
		s.AddCompany(company.New("c2", "Rival", "B", 1000000))
		advanceDays(s, 90)
		return c.Money, c.Fame, len(s.Company("c2").Routes)
	}

	m1, f1, r1 := run()
	m2, f2, r2 := run()
	if m1 != m2 || f1 != f2 || r1 != r2 {
		t.Errorf("identical seeds diverged: money %v/%v fame %v/%v routes %d/%d",
			m1, m2, f1, f2, r1, r2)
	}
}
