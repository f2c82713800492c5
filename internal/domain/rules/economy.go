// Package rules contains the pure calculation logic for the airline economy.
// This package is PURE and must NOT import any infrastructure packages.
package rules

import (
	"math"

	"github.com/openskies-sim/airtycoon/internal/domain/catalog"
	"github.com/openskies-sim/airtycoon/internal/domain/company"
	"github.com/openskies-sim/airtycoon/internal/domain/modifier"
)

const (
	// TurnaroundHours is the ground time added to every round trip.
	TurnaroundHours = 4.0
	// HoursPerWeek bounds how many round trips one airframe can fly.
	HoursPerWeek = 168.0

	// DemandScale converts summed city attractiveness into weekly passengers.
	DemandScale = 1.2
	// PriceElasticity couples the ticket price modifier to demand:
	// demand multiplier = 1 - priceMod/100 * PriceElasticity.
	PriceElasticity = 1.5

	// SupersonicSpeed splits the fare table: anything cruising faster than
	// this charges supersonic fares.
	SupersonicSpeed = 1000.0

	subsonicBaseFee    = 30.0
	subsonicBaseRate   = 0.08
	supersonicBaseFee  = 80.0
	supersonicBaseRate = 0.16
)

// Distance returns the great-circle distance between two cities in km.
func Distance(a, b catalog.City) float64 {
	const earthRadiusKm = 6371.0
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

// MaxFrequency returns the highest weekly round-trip count the assigned
// airframes can sustain on a leg of the given length. Zero for degenerate
// inputs.
func MaxFrequency(p catalog.PlaneType, distanceKm float64, assigned int) int {
	if distanceKm <= 0 || assigned <= 0 || p.Speed <= 0 {
		return 0
	}
	roundTripHours := 2*distanceKm/p.Speed + TurnaroundHours
	tripsPerPlane := int(HoursPerWeek / roundTripHours)
	return tripsPerPlane * assigned
}

// TicketPrice returns the one-way fare for a leg, with the route's price
// modifier applied. Supersonic aircraft use a premium fare table.
func TicketPrice(p catalog.PlaneType, distanceKm float64, priceModifier int) float64 {
	baseFee, baseRate := subsonicBaseFee, subsonicBaseRate
	if p.Speed > SupersonicSpeed {
		baseFee, baseRate = supersonicBaseFee, supersonicBaseRate
	}
	return (baseFee + distanceKm*baseRate) * (1 + float64(priceModifier)/100)
}

// RouteInput bundles everything the weekly route calculation needs.
type RouteInput struct {
	RouteID       string
	Plane         catalog.PlaneType
	Source        catalog.City
	Target        catalog.City
	DistanceKm    float64
	Frequency     int
	AssignedCount int
	PriceModifier int
	Mods          *modifier.Set
}

// ComputeRoute runs the per-route weekly economics. It is deterministic for
// identical inputs and never produces NaN or Inf: a degenerate route
// (distance <= 0, zero frequency) yields zeroed stats.
func ComputeRoute(in RouteInput) company.RouteStats {
	if in.DistanceKm <= 0 || in.Frequency <= 0 || in.AssignedCount <= 0 || in.Plane.Capacity <= 0 {
		return company.RouteStats{}
	}

	routeCtx := modifier.Context{
		RouteID:     in.RouteID,
		SourceID:    in.Source.ID,
		TargetID:    in.Target.ID,
		PlaneTypeID: in.Plane.ID,
	}

	srcBiz := modifier.Apply(in.Source.Biz, in.Mods.For(modifier.ChannelCityBiz, modifier.Context{CityID: in.Source.ID}))
	tgtBiz := modifier.Apply(in.Target.Biz, in.Mods.For(modifier.ChannelCityBiz, modifier.Context{CityID: in.Target.ID}))
	srcTour := modifier.Apply(in.Source.Tour, in.Mods.For(modifier.ChannelCityTour, modifier.Context{CityID: in.Source.ID}))
	tgtTour := modifier.Apply(in.Target.Tour, in.Mods.For(modifier.ChannelCityTour, modifier.Context{CityID: in.Target.ID}))

	baseDemand := (srcBiz + tgtBiz + srcTour + tgtTour) * DemandScale
	elastic := 1 - float64(in.PriceModifier)/100*PriceElasticity
	if elastic < 0 {
		elastic = 0
	}
	realDemand := modifier.Apply(baseDemand*elastic, in.Mods.For(modifier.ChannelDemand, routeCtx))
	if realDemand < 0 {
		realDemand = 0
	}

	weeklyCapacity := float64(in.Frequency * in.Plane.Capacity * 2) // round trip
	baseLoad := math.Min(1, realDemand/weeklyCapacity)
	load := modifier.Apply(baseLoad, in.Mods.For(modifier.ChannelLoadFactor, routeCtx))
	load = clamp(load, 0, 1)

	passengers := int(weeklyCapacity * load)
	ticket := TicketPrice(in.Plane, in.DistanceKm, in.PriceModifier)
	revenue := modifier.Apply(float64(passengers)*ticket, in.Mods.For(modifier.ChannelRevenue, routeCtx))

	flightCost := float64(in.Frequency) * 2 * in.DistanceKm * in.Plane.FuelCost
	flightCost = modifier.Apply(flightCost, in.Mods.For(modifier.ChannelFlightCost, routeCtx))

	maintCost := float64(in.AssignedCount) * in.Plane.Maint
	maintCost = modifier.Apply(maintCost, in.Mods.For(modifier.ChannelMaintCost, routeCtx))

	return company.RouteStats{
		Revenue:    revenue,
		FlightCost: flightCost,
		MaintCost:  maintCost,
		Profit:     revenue - flightCost - maintCost,
		Occupancy:  load,
		Passengers: passengers,
	}
}

// IdleCost prices the owned-but-unassigned units of one plane type.
func IdleCost(p catalog.PlaneType, idleCount int, mods *modifier.Set) float64 {
	if idleCount <= 0 {
		return 0
	}
	base := float64(idleCount) * p.Idle
	return modifier.Apply(base, mods.For(modifier.ChannelIdleCost, modifier.Context{PlaneTypeID: p.ID}))
}

// UpdateFame recomputes company reputation from its current fame, effort
// levels, PR spend and active fame modifiers. Deterministic, clamped to 0..100.
func UpdateFame(fame float64, maintenanceEffort, serviceEffort int, prBudget float64, mods []modifier.Modifier) float64 {
	target := float64(maintenanceEffort+serviceEffort) / 2
	next := fame + (target-fame)*0.1
	if prBudget > 0 {
		next += math.Log1p(prBudget/10000) // diminishing returns on PR spend
	}
	next = modifier.Apply(next, mods)
	return clamp(next, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
