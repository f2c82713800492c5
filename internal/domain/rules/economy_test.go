package rules

import (
	"math"
	"testing"

	"github.com/openskies-sim/airtycoon/internal/domain/catalog"
	"github.com/openskies-sim/airtycoon/internal/domain/modifier"
)

func TestMaxFrequency(t *testing.T) {
	// 2*1600/800 + 4 = 8h round trip -> 21 trips per airframe per week.
	plane := catalog.PlaneType{ID: "p", Speed: 800, Capacity: 100}
	if got := MaxFrequency(plane, 1600, 1); got != 21 {
		t.Errorf("expected 21 trips for one airframe, got %d", got)
	}
	if got := MaxFrequency(plane, 1600, 2); got != 42 {
		t.Errorf("expected 42 trips for two airframes, got %d", got)
	}
}

func TestMaxFrequencyDegenerate(t *testing.T) {
	plane := catalog.PlaneType{ID: "p", Speed: 800}
	if got := MaxFrequency(plane, 0, 1); got != 0 {
		t.Errorf("zero distance should yield 0, got %d", got)
	}
	if got := MaxFrequency(plane, 1600, 0); got != 0 {
		t.Errorf("zero assigned should yield 0, got %d", got)
	}
	if got := MaxFrequency(catalog.PlaneType{}, 1600, 1); got != 0 {
		t.Errorf("zero speed should yield 0, got %d", got)
	}
}

func TestMaxFrequencyMonotonicInAssigned(t *testing.T) {
	plane := catalog.PlaneType{ID: "p", Speed: 600, Capacity: 80}
	prev := 0
	for assigned := 1; assigned <= 5; assigned++ {
		got := MaxFrequency(plane, 2500, assigned)
		if got < prev {
			t.Fatalf("frequency dropped from %d to %d at assigned=%d", prev, got, assigned)
		}
		prev = got
	}
}

func TestTicketPriceFareTables(t *testing.T) {
	subsonic := catalog.PlaneType{ID: "sub", Speed: 900}
	supersonic := catalog.PlaneType{ID: "ssc", Speed: 2100}

	wantSub := 30.0 + 1000*0.08
	if got := TicketPrice(subsonic, 1000, 0); got != wantSub {
		t.Errorf("subsonic fare: expected %v, got %v", wantSub, got)
	}

	wantSsc := 80.0 + 1000*0.16
	if got := TicketPrice(supersonic, 1000, 0); got != wantSsc {
		t.Errorf("supersonic fare: expected %v, got %v", wantSsc, got)
	}

	// Speed exactly at the threshold stays on the subsonic table.
	edge := catalog.PlaneType{ID: "edge", Speed: SupersonicSpeed}
	if got := TicketPrice(edge, 1000, 0); got != wantSub {
		t.Errorf("threshold speed should use subsonic fares, got %v", got)
	}

	// Price modifier scales the whole fare.
	if got := TicketPrice(subsonic, 1000, 50); got != wantSub*1.5 {
		t.Errorf("+50%% modifier: expected %v, got %v", wantSub*1.5, got)
	}
}

func TestDistanceKnownPair(t *testing.T) {
	nyc := catalog.City{ID: "NYC", Lat: 40.71, Lon: -74.01}
	lon := catalog.City{ID: "LON", Lat: 51.51, Lon: -0.13}
	d := Distance(nyc, lon)
	if d < 5500 || d > 5650 {
		t.Errorf("NYC-LON distance out of expected band: %v km", d)
	}
	if Distance(nyc, nyc) != 0 {
		t.Errorf("distance to self should be 0")
	}
}

func routeFixture() RouteInput {
	var mods modifier.Set
	return RouteInput{
		RouteID:       "R-1",
		Plane:         catalog.PlaneType{ID: "p", Speed: 800, Capacity: 150, FuelCost: 2.5, Maint: 1000},
		Source:        catalog.City{ID: "A", Biz: 80, Tour: 60},
		Target:        catalog.City{ID: "B", Biz: 70, Tour: 90},
		DistanceKm:    1000,
		Frequency:     1,
		AssignedCount: 2,
		PriceModifier: 0,
		Mods:          &mods,
	}
}

func TestComputeRouteCosts(t *testing.T) {
	stats := ComputeRoute(routeFixture())

	// 1 round trip * 2 legs * 1000 km * 2.5/km
	if stats.FlightCost != 5000 {
		t.Errorf("flight cost: expected 5000, got %v", stats.FlightCost)
	}
	// 2 assigned * 1000 weekly maintenance
	if stats.MaintCost != 2000 {
		t.Errorf("maintenance cost: expected 2000, got %v", stats.MaintCost)
	}
	if stats.Profit != stats.Revenue-stats.FlightCost-stats.MaintCost {
		t.Errorf("profit identity broken: %+v", stats)
	}
}

func TestComputeRouteDegenerate(t *testing.T) {
	zero := RouteInput{Mods: &modifier.Set{}}
	if got := ComputeRoute(zero); got.Revenue != 0 || got.Profit != 0 || got.Passengers != 0 {
		t.Errorf("degenerate input should zero stats, got %+v", got)
	}

	in := routeFixture()
	in.Frequency = 0
	got := ComputeRoute(in)
	if got.Revenue != 0 || got.FlightCost != 0 || got.Passengers != 0 {
		t.Errorf("zero frequency should zero stats, got %+v", got)
	}

	in = routeFixture()
	in.DistanceKm = 0
	got = ComputeRoute(in)
	if got.Revenue != 0 {
		t.Errorf("zero distance should zero stats, got %+v", got)
	}
}

func TestComputeRouteNeverNaN(t *testing.T) {
	in := routeFixture()
	in.PriceModifier = 50 // elasticity drives demand toward zero
	got := ComputeRoute(in)
	if math.IsNaN(got.Revenue) || math.IsInf(got.Revenue, 0) ||
		math.IsNaN(got.Occupancy) || math.IsInf(got.Occupancy, 0) {
		t.Errorf("non-finite stats: %+v", got)
	}
}

func TestComputeRouteLoadFactorClamped(t *testing.T) {
	in := routeFixture()
	in.Mods.Upsert(modifier.Modifier{
		ID: "boost", Channel: modifier.ChannelLoadFactor,
		Kind: modifier.KindMultiplier, Value: 100,
	})
	got := ComputeRoute(in)
	if got.Occupancy < 0 || got.Occupancy > 1 {
		t.Errorf("load factor escaped [0,1]: %v", got.Occupancy)
	}
	if got.Passengers > in.Frequency*in.Plane.Capacity*2 {
		t.Errorf("passengers exceed weekly capacity: %d", got.Passengers)
	}
}

func TestComputeRouteDemandModifierScoping(t *testing.T) {
	in := routeFixture()
	base := ComputeRoute(in)

	// A demand modifier scoped to a different route must not apply.
	in.Mods.Upsert(modifier.Modifier{
		ID: "other", Channel: modifier.ChannelDemand,
		Kind: modifier.KindMultiplier, Value: 0,
		Scope: modifier.Context{RouteID: "R-999"},
	})
	got := ComputeRoute(in)
	if got.Revenue != base.Revenue {
		t.Errorf("foreign route scope leaked: %v != %v", got.Revenue, base.Revenue)
	}

	// Scoped to this route it must.
	in.Mods.Upsert(modifier.Modifier{
		ID: "mine", Channel: modifier.ChannelDemand,
		Kind: modifier.KindMultiplier, Value: 0,
		Scope: modifier.Context{RouteID: "R-1"},
	})
	got = ComputeRoute(in)
	if got.Passengers != 0 {
		t.Errorf("zeroed demand should carry no passengers, got %d", got.Passengers)
	}
}

func TestIdleCost(t *testing.T) {
	plane := catalog.PlaneType{ID: "p", Idle: 500}
	var mods modifier.Set
	if got := IdleCost(plane, 3, &mods); got != 1500 {
		t.Errorf("expected 1500, got %v", got)
	}
	if got := IdleCost(plane, 0, &mods); got != 0 {
		t.Errorf("zero idle units should cost nothing, got %v", got)
	}
}

func TestUpdateFameDriftsTowardEfforts(t *testing.T) {
	// Fame 50, efforts at 100 -> target 100, one step of 10% of the gap.
	got := UpdateFame(50, 100, 100, 0, nil)
	if got != 55 {
		t.Errorf("expected 55, got %v", got)
	}

	// Low efforts pull fame down.
	got = UpdateFame(50, 0, 0, 0, nil)
	if got != 45 {
		t.Errorf("expected 45, got %v", got)
	}

	// Equilibrium holds with no PR spend.
	got = UpdateFame(60, 60, 60, 0, nil)
	if got != 60 {
		t.Errorf("expected equilibrium at 60, got %v", got)
	}
}

func TestUpdateFameClamped(t *testing.T) {
	mods := []modifier.Modifier{{ID: "x", Channel: modifier.ChannelFame, Kind: modifier.KindFlat, Value: 1000}}
	if got := UpdateFame(90, 100, 100, 1e9, mods); got != 100 {
		t.Errorf("fame should clamp at 100, got %v", got)
	}
	down := []modifier.Modifier{{ID: "y", Channel: modifier.ChannelFame, Kind: modifier.KindFlat, Value: -1000}}
	if got := UpdateFame(10, 0, 0, 0, down); got != 0 {
		t.Errorf("fame should clamp at 0, got %v", got)
	}
}

func TestUpdateFamePRDiminishingReturns(t *testing.T) {
	base := UpdateFame(50, 50, 50, 0, nil)
	small := UpdateFame(50, 50, 50, 10000, nil)
	big := UpdateFame(50, 50, 50, 100000, nil)

	firstGain := small - base
	secondGain := big - small
	if firstGain <= 0 {
		t.Fatalf("PR spend should raise fame, gain %v", firstGain)
	}
	if secondGain >= firstGain*9 {
		t.Errorf("PR returns should diminish: +10k gave %v, next +90k gave %v", firstGain, secondGain)
	}
}
