package catalog

import (
	"time"

	"github.com/openskies-sim/airtycoon/internal/domain/modifier"
)

// Builtin returns the bundled 1960s-era starter catalog. It is used by the
// headless runner and as a fallback when no catalog directory is configured.
func Builtin() *Catalog {
	c, err := New(builtinCities(), builtinPlanes(), builtinProperties(), builtinEvents())
	if err != nil {
		// The builtin tables are compiled in; a validation failure here is a
		// programming error, not an input error.
		panic(err)
	}
	return c
}

func builtinCities() []City {
	return []City{
		{ID: "NYC", Name: "New York", Lat: 40.71, Lon: -74.01, Biz: 95, Tour: 80},
		{ID: "LON", Name: "London", Lat: 51.51, Lon: -0.13, Biz: 90, Tour: 85},
		{ID: "PAR", Name: "Paris", Lat: 48.86, Lon: 2.35, Biz: 75, Tour: 95},
		{ID: "TYO", Name: "Tokyo", Lat: 35.68, Lon: 139.69, Biz: 85, Tour: 70},
		{ID: "RIO", Name: "Rio de Janeiro", Lat: -22.91, Lon: -43.17, Biz: 45, Tour: 90},
		{ID: "SYD", Name: "Sydney", Lat: -33.87, Lon: 151.21, Biz: 55, Tour: 75},
		{ID: "CAI", Name: "Cairo", Lat: 30.04, Lon: 31.24, Biz: 40, Tour: 70},
		{ID: "LAX", Name: "Los Angeles", Lat: 34.05, Lon: -118.24, Biz: 80, Tour: 85},
	}
}

func builtinPlanes() []PlaneType {
	return []PlaneType{
		{ID: "dc3", Name: "Douglas DC-3", Speed: 330, Range: 2400, Capacity: 28,
			Price: 120000, FuelCost: 0.4, Maint: 800, Idle: 200, Intro: 1936, End: 1965},
		{ID: "connie", Name: "Lockheed Constellation", Speed: 550, Range: 8700, Capacity: 95,
			Price: 900000, FuelCost: 1.2, Maint: 2500, Idle: 600, Intro: 1945, End: 1968},
		{ID: "707", Name: "Boeing 707", Speed: 900, Range: 10650, Capacity: 174,
			Price: 4300000, FuelCost: 2.4, Maint: 6000, Idle: 1500, Intro: 1958, End: 1984},
		{ID: "dc8", Name: "Douglas DC-8", Speed: 895, Range: 9205, Capacity: 177,
			Price: 4100000, FuelCost: 2.3, Maint: 5800, Idle: 1450, Intro: 1959, End: 1986},
		{ID: "747", Name: "Boeing 747", Speed: 920, Range: 12700, Capacity: 440,
			Price: 24000000, FuelCost: 7.5, Maint: 18000, Idle: 4500, Intro: 1970, End: 2010},
		{ID: "concorde", Name: "Concorde", Speed: 2140, Range: 7220, Capacity: 100,
			Price: 46000000, FuelCost: 20, Maint: 30000, Idle: 8000, Intro: 1976, End: 2003},
	}
}

func builtinProperties() []PropertyType {
	return []PropertyType{
		{ID: "lounge", Name: "VIP Lounge", BaseCost: 250000,
			FixedMaintCost: 2000, LoadFactorBonus: 0.03},
		{ID: "hotel", Name: "Airport Hotel", BaseCost: 1200000,
			BizMultiplier: 120, TourMultiplier: 300, FixedMaintCost: 9000, RelationshipBonus: 0.02},
		{ID: "office", Name: "Sales Office", BaseCost: 400000,
			BizMultiplier: 250, FixedMaintCost: 3500, RelationshipBonus: 0.01},
		{ID: "hangar", Name: "Maintenance Hangar", BaseCost: 800000,
			FixedMaintCost: 5000, LoadFactorBonus: 0.01, RelationshipBonus: 0.02},
	}
}

func builtinEvents() []GameEvent {
	minCashRich := 5000000.0
	minFleet := 3

	return []GameEvent{
		{
			ID:    "jet-age",
			Title: "The Jet Age Arrives",
			Text:  "Passengers everywhere demand jet service. Propeller fleets suddenly look tired.",
			Mode:  ScheduleWindow,
			Start: date(1959, 1, 1), End: date(1961, 12, 31),
			OneTime: true,
			Options: []Option{
				{Label: "Embrace the jets", Effects: []Effect{
					{Kind: EffectAddModifier, Modifier: &ModifierSpec{
						Source: "jet-age", Channel: modifier.ChannelDemand,
						Kind: modifier.KindPercentage, Value: 0.15, DurationDays: 1825,
					}},
				}},
				{Label: "Stay the course", Effects: []Effect{
					{Kind: EffectFame, Amount: -5},
				}},
			},
		},
		{
			ID:    "fuel-crisis",
			Title: "Fuel Price Shock",
			Text:  "A supply disruption sends fuel prices soaring across the industry.",
			Mode:  ScheduleMTTH,
			MTTH:  1500,
			Options: []Option{
				{Label: "Absorb the costs", Effects: []Effect{
					{Kind: EffectAddModifier, Modifier: &ModifierSpec{
						Source: "fuel-crisis", Channel: modifier.ChannelFlightCost,
						Kind: modifier.KindPercentage, Value: 0.30, DurationDays: 365,
					}},
				}},
				{Label: "Pass them to passengers", Effects: []Effect{
					{Kind: EffectAddModifier, Modifier: &ModifierSpec{
						Source: "fuel-crisis", Channel: modifier.ChannelDemand,
						Kind: modifier.KindPercentage, Value: -0.10, DurationDays: 365,
					}},
					{Kind: EffectFame, Amount: -3},
				}},
			},
		},
		{
			ID:    "safety-award",
			Title: "Industry Safety Award",
			Text:  "Your maintenance record earns an industry commendation.",
			Mode:  ScheduleMTTH,
			MTTH:  2000,
			Trigger: Trigger{
				MinFleet: &minFleet,
			},
			Options: []Option{
				{Label: "Accept with pride", Effects: []Effect{
					{Kind: EffectFame, Amount: 8},
					{Kind: EffectMoney, Amount: 50000},
				}},
			},
		},
		{
			ID:    "merger-offer",
			Title: "Merger Overture",
			Text:  "A rival airline quietly proposes a merger. The press would have a field day.",
			Mode:  ScheduleMTTH,
			MTTH:  3000,
			Trigger: Trigger{
				MinCash: &minCashRich,
			},
			Options: []Option{
				{Label: "Leak it for publicity", Effects: []Effect{
					{Kind: EffectFame, Amount: 4},
					{Kind: EffectTriggerEvent, EventID: "merger-fallout"},
				}},
				{Label: "Decline quietly", Effects: []Effect{}},
			},
		},
		{
			ID:      "merger-fallout",
			Title:   "Merger Talks Collapse",
			Text:    "The leaked talks collapse amid recriminations. Lawyers get involved.",
			Mode:    ScheduleMTTH,
			MTTH:    1e9, // chained only; never sampled in practice
			OneTime: true,
			Options: []Option{
				{Label: "Settle", Effects: []Effect{
					{Kind: EffectMoney, Amount: -250000},
				}},
			},
		},
		{
			ID:    "recession",
			Title: "Economic Downturn",
			Text:  "A recession cuts into business travel budgets worldwide.",
			Mode:  ScheduleMTTH,
			MTTH:  2500,
			Options: []Option{
				{Label: "Weather the storm", Effects: []Effect{
					{Kind: EffectAddModifier, Modifier: &ModifierSpec{
						Source: "recession", Channel: modifier.ChannelRevenue,
						Kind: modifier.KindPercentage, Value: -0.12, DurationDays: 540,
					}},
				}},
			},
		},
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
