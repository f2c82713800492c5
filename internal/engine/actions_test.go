package engine

import (
	"errors"
	"testing"

	"github.com/openskies-sim/airtycoon/internal/domain/company"
)

func TestDispatchUnknownCompany(t *testing.T) {
	s, _ := testSim(t, nil, 1)
	err := s.Dispatch("ghost", AddMoney{Amount: 1})
	if !errors.Is(err, ErrUnknownEntity) {
		t.Errorf("expected ErrUnknownEntity, got %v", err)
	}
}

func TestAddRouteValidation(t *testing.T) {
	s, _ := testSim(t, nil, 1)
	c := company.New("c1", "Test Air", "A", 1000000)
	s.AddCompany(c)
	if err := s.Dispatch("c1", BuyPlane{PlaneTypeID: "jet"}); err != nil {
		t.Fatalf("buyPlane: %v", err)
	}
	moneyBefore := c.Money

	cases := []struct {
		name string
		act  AddRoute
		want error
	}{
		{"unknown city", AddRoute{SourceID: "A", TargetID: "ZZ", PlaneTypeID: "jet", AssignedCount: 1, Frequency: 1}, ErrUnknownEntity},
		{"unknown plane", AddRoute{SourceID: "A", TargetID: "B", PlaneTypeID: "ghost", AssignedCount: 1, Frequency: 1}, ErrUnknownEntity},
		{"same endpoints", AddRoute{SourceID: "A", TargetID: "A", PlaneTypeID: "jet", AssignedCount: 1, Frequency: 1}, ErrRouteConstraint},
		{"no aircraft", AddRoute{SourceID: "A", TargetID: "B", PlaneTypeID: "jet", AssignedCount: 2, Frequency: 1}, ErrRouteConstraint},
		{"zero assigned", AddRoute{SourceID: "A", TargetID: "B", PlaneTypeID: "jet", AssignedCount: 0, Frequency: 1}, ErrRouteConstraint},
		{"frequency too high", AddRoute{SourceID: "A", TargetID: "B", PlaneTypeID: "jet", AssignedCount: 1, Frequency: 9999}, ErrRouteConstraint},
		{"price out of bounds", AddRoute{SourceID: "A", TargetID: "B", PlaneTypeID: "jet", AssignedCount: 1, Frequency: 1, PriceModifier: 60}, ErrInvalidPayload},
	}
	for _, tc := range cases {
		err := s.Dispatch("c1", tc.act)
		if !errors.Is(err, tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}

	// A failed action leaves no trace.
	if len(c.Routes) != 0 {
		t.Errorf("rejected actions created %d routes", len(c.Routes))
	}
	if c.Money != moneyBefore {
		t.Errorf("rejected actions changed the balance: %v -> %v", moneyBefore, c.Money)
	}

	// The valid version passes.
	if err := s.Dispatch("c1", AddRoute{SourceID: "A", TargetID: "B", PlaneTypeID: "jet",
		AssignedCount: 1, Frequency: 10, PriceModifier: -10}); err != nil {
		t.Fatalf("valid addRoute rejected: %v", err)
	}

	// The pair is now taken, in both directions.
	err := s.Dispatch("c1", AddRoute{SourceID: "B", TargetID: "A", PlaneTypeID: "jet", AssignedCount: 1, Frequency: 1})
	if !errors.Is(err, ErrRouteConstraint) {
		t.Errorf("duplicate pair: expected ErrRouteConstraint, got %v", err)
	}
}

func TestAddRouteOutOfRange(t *testing.T) {
	s, _ := testSim(t, nil, 1)
	c := company.New("c1", "Test Air", "A", 1000000)
	s.AddCompany(c)
	if err := s.Dispatch("c1", BuyPlane{PlaneTypeID: "balloon"}); err != nil {
		t.Fatalf("buyPlane: %v", err)
	}

	// A-D is ~8900 km, far past the balloon's range.
	err := s.Dispatch("c1", AddRoute{SourceID: "A", TargetID: "D", PlaneTypeID: "balloon",
		AssignedCount: 1, Frequency: 1})
	if !errors.Is(err, ErrRouteConstraint) {
		t.Errorf("out of range: expected ErrRouteConstraint, got %v", err)
	}
}

func TestUpdateRoutePartialFields(t *testing.T) {
	s, _ := testSim(t, nil, 1)
	c := company.New("c1", "Test Air", "A", 1000000)
	s.AddCompany(c)
	s.Dispatch("c1", BuyPlane{PlaneTypeID: "jet"})
	if err := s.Dispatch("c1", AddRoute{SourceID: "A", TargetID: "B", PlaneTypeID: "jet",
		AssignedCount: 1, Frequency: 10, PriceModifier: 20}); err != nil {
		t.Fatalf("addRoute: %v", err)
	}
	r := c.Routes[0]

	newFreq := 5
	if err := s.Dispatch("c1", UpdateRoute{RouteID: r.ID, Frequency: &newFreq}); err != nil {
		t.Fatalf("updateRoute: %v", err)
	}
	if r.Frequency != 5 || r.PriceModifier != 20 || r.AssignedCount != 1 {
		t.Errorf("partial update touched unspecified fields: %+v", r)
	}

	// An invalid partial update changes nothing.
	badFreq := 9999
	if err := s.Dispatch("c1", UpdateRoute{RouteID: r.ID, Frequency: &badFreq}); !errors.Is(err, ErrRouteConstraint) {
		t.Fatalf("expected ErrRouteConstraint, got %v", err)
	}
	if r.Frequency != 5 {
		t.Errorf("failed update leaked: frequency %d", r.Frequency)
	}

	auto := true
	if err := s.Dispatch("c1", UpdateRoute{RouteID: r.ID, AutoManage: &auto}); err != nil {
		t.Fatalf("updateRoute automanage: %v", err)
	}
	if !r.AutoManage {
		t.Errorf("auto-manage flag not set")
	}
}

func TestUpdateRouteVanishedCity(t *testing.T) {
	s, _ := testSim(t, nil, 1)
	c := company.New("c1", "Test Air", "A", 1000000)
	s.AddCompany(c)
	s.Dispatch("c1", BuyPlane{PlaneTypeID: "jet"})
	if err := s.Dispatch("c1", AddRoute{SourceID: "A", TargetID: "B", PlaneTypeID: "jet",
		AssignedCount: 1, Frequency: 10}); err != nil {
		t.Fatalf("addRoute: %v", err)
	}

	// A restored save can reference a city a newer catalog dropped.
	r := c.Routes[0]
	r.SourceID = "atlantis"

	newFreq := 5
	err := s.Dispatch("c1", UpdateRoute{RouteID: r.ID, Frequency: &newFreq})
	if !errors.Is(err, ErrUnknownEntity) {
		t.Errorf("missing city: expected ErrUnknownEntity, got %v", err)
	}
}

func TestDeleteRouteFreesAircraft(t *testing.T) {
	s, _ := testSim(t, nil, 1)
	c := company.New("c1", "Test Air", "A", 1000000)
	s.AddCompany(c)
	s.Dispatch("c1", BuyPlane{PlaneTypeID: "jet"})
	s.Dispatch("c1", AddRoute{SourceID: "A", TargetID: "B", PlaneTypeID: "jet", AssignedCount: 1, Frequency: 10})

	if c.Idle("jet") != 0 {
		t.Fatalf("aircraft should be committed to the route")
	}
	if err := s.Dispatch("c1", DeleteRoute{RouteID: c.Routes[0].ID}); err != nil {
		t.Fatalf("deleteRoute: %v", err)
	}
	if len(c.Routes) != 0 || c.Idle("jet") != 1 {
		t.Errorf("deletion did not free the airframe: routes=%d idle=%d", len(c.Routes), c.Idle("jet"))
	}

	if err := s.Dispatch("c1", DeleteRoute{RouteID: "nope"}); !errors.Is(err, ErrUnknownEntity) {
		t.Errorf("expected ErrUnknownEntity, got %v", err)
	}
}

func TestBuyPlaneImmediateAndFunds(t *testing.T) {
	s, _ := testSim(t, nil, 1)
	c := company.New("c1", "Test Air", "A", 150000)
	s.AddCompany(c)

	if err := s.Dispatch("c1", BuyPlane{PlaneTypeID: "jet"}); err != nil {
		t.Fatalf("buyPlane: %v", err)
	}
	if c.Fleet["jet"] != 1 || c.Money != 50000 {
		t.Errorf("immediate purchase wrong: fleet=%d money=%v", c.Fleet["jet"], c.Money)
	}

	err := s.Dispatch("c1", BuyPlane{PlaneTypeID: "jet"})
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("expected ErrInsufficientFunds, got %v", err)
	}
	if c.Money != 50000 {
		t.Errorf("failed purchase changed the balance: %v", c.Money)
	}
}

func TestBuyPlaneMarketWindow(t *testing.T) {
	s, _ := testSim(t, nil, 1)
	c := company.New("c1", "Test Air", "A", 100000000)
	s.AddCompany(c)

	// The widebody enters the market in 1970; it is 1960.
	err := s.Dispatch("c1", BuyPlane{PlaneTypeID: "future"})
	if !errors.Is(err, ErrUnknownEntity) {
		t.Errorf("expected ErrUnknownEntity for off-market model, got %v", err)
	}
}

func TestBuyPlaneDelayedDelivery(t *testing.T) {
	s, _ := testSim(t, nil, 1)
	c := company.New("c1", "Test Air", "A", 150000)
	c.IsPlayer = true // keep the monthly AI pass out of the task queue
	s.AddCompany(c)

	if err := s.Dispatch("c1", BuyPlane{PlaneTypeID: "jet", Delayed: true}); err != nil {
		t.Fatalf("buyPlane delayed: %v", err)
	}
	if c.Fleet["jet"] != 0 {
		t.Fatalf("delayed order credited immediately")
	}
	if c.Money != 50000 {
		t.Errorf("payment should be taken up front, money=%v", c.Money)
	}
	if len(s.Snapshot().Tasks) != 1 {
		t.Fatalf("no delivery task queued")
	}

	advanceDays(s, DeliveryLeadDays-1)
	if c.Fleet["jet"] != 0 {
		t.Fatalf("delivery arrived early")
	}
	advanceDays(s, 1)
	if c.Fleet["jet"] != 1 {
		t.Errorf("delivery did not arrive on the due date")
	}
	if len(s.Snapshot().Tasks) != 0 {
		t.Errorf("completed task still queued")
	}
}

func TestUpdateEffortsValidation(t *testing.T) {
	s, _ := testSim(t, nil, 1)
	c := company.New("c1", "Test Air", "A", 10000)
	s.AddCompany(c)

	if err := s.Dispatch("c1", UpdateEfforts{Maintenance: 70, Service: 80, PRBudget: 500}); err != nil {
		t.Fatalf("updateEfforts: %v", err)
	}
	if c.MaintenanceEffort != 70 || c.ServiceEffort != 80 || c.PRBudget != 500 {
		t.Errorf("efforts not applied: %+v", c)
	}

	for _, act := range []UpdateEfforts{
		{Maintenance: -1, Service: 50},
		{Maintenance: 50, Service: 101},
		{Maintenance: 50, Service: 50, PRBudget: -1},
	} {
		if err := s.Dispatch("c1", act); !errors.Is(err, ErrInvalidPayload) {
			t.Errorf("expected ErrInvalidPayload for %+v, got %v", act, err)
		}
	}
	if c.MaintenanceEffort != 70 {
		t.Errorf("failed update leaked")
	}
}

func TestPropertyLifecycle(t *testing.T) {
	s, _ := testSim(t, nil, 1)
	c := company.New("c1", "Test Air", "A", 60000)
	s.AddCompany(c)

	if err := s.Dispatch("c1", BuyProperty{TypeID: "lounge", CityID: "A"}); err != nil {
		t.Fatalf("buyProperty: %v", err)
	}
	if c.Money != 10000 || len(c.Properties) != 1 {
		t.Errorf("purchase wrong: money=%v properties=%d", c.Money, len(c.Properties))
	}

	err := s.Dispatch("c1", BuyProperty{TypeID: "lounge", CityID: "A"})
	if !errors.Is(err, ErrDuplicateProperty) {
		t.Errorf("expected ErrDuplicateProperty, got %v", err)
	}

	err = s.Dispatch("c1", BuyProperty{TypeID: "lounge", CityID: "B"})
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("expected ErrInsufficientFunds, got %v", err)
	}

	// Selling refunds half the base cost.
	if err := s.Dispatch("c1", SellProperty{TypeID: "lounge", CityID: "A"}); err != nil {
		t.Fatalf("sellProperty: %v", err)
	}
	if c.Money != 35000 || len(c.Properties) != 0 {
		t.Errorf("sale wrong: money=%v properties=%d", c.Money, len(c.Properties))
	}

	err = s.Dispatch("c1", SellProperty{TypeID: "lounge", CityID: "A"})
	if !errors.Is(err, ErrUnknownEntity) {
		t.Errorf("selling twice: expected ErrUnknownEntity, got %v", err)
	}
}
