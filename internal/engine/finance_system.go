package engine

import (
	"time"

	"github.com/openskies-sim/airtycoon/internal/domain/catalog"
	"github.com/openskies-sim/airtycoon/internal/domain/company"
	"github.com/openskies-sim/airtycoon/internal/domain/modifier"
	"github.com/openskies-sim/airtycoon/internal/domain/rules"
	"github.com/openskies-sim/airtycoon/internal/events"
)

// derivedSource labels the modifiers the finance pass computes from fame and
// owned properties. They are wiped and re-planted on every recompute so they
// always mirror the current company state.
const derivedSource = "derived"

// PropertyFinancer is the external valuation routine for owned properties.
// Given a company and date it prices every property's weekly income and cost,
// updates the property records, and returns the totals. The economic model
// treats it as an opaque dependency.
type PropertyFinancer interface {
	Evaluate(c *company.Company, date time.Time, cat *catalog.Catalog) (income, cost float64)
}

// StandardPropertyFinance is the built-in property valuation: income scales
// with the host city's attractiveness, cost is the type's fixed maintenance.
type StandardPropertyFinance struct{}

// Evaluate implements PropertyFinancer.
func (StandardPropertyFinance) Evaluate(c *company.Company, _ time.Time, cat *catalog.Catalog) (float64, float64) {
	var income, cost float64
	for i := range c.Properties {
		p := &c.Properties[i]
		typ, okType := cat.Property(p.TypeID)
		city, okCity := cat.City(p.CityID)
		if !okType || !okCity {
			p.WeeklyIncome, p.WeeklyCost = 0, 0
			continue
		}
		p.WeeklyIncome = city.Biz*typ.BizMultiplier + city.Tour*typ.TourMultiplier
		p.WeeklyCost = typ.FixedMaintCost
		income += p.WeeklyIncome
		cost += p.WeeklyCost
	}
	return income, cost
}

// runWeeklyFinance recomputes every company at an ISO-week boundary.
func (s *Simulation) runWeeklyFinance() {
	for _, id := range s.order {
		s.recomputeCompany(s.companies[id])
	}
}

// recomputeCompany runs the weekly economic model for one airline. The
// computation is deterministic for an identical (company, date) pair. A route
// referencing unknown catalog ids yields zeroed stats and never blocks the
// rest of the company.
func (s *Simulation) recomputeCompany(c *company.Company) {
	c.Modifiers.Sweep(s.date)
	s.refreshDerivedModifiers(c)

	var totals company.PeriodStats
	for _, r := range c.Routes {
		r.Stats = s.routeStats(c, r)
		totals.Revenue += r.Stats.Revenue
		totals.FlightCost += r.Stats.FlightCost
		totals.MaintCost += r.Stats.MaintCost
		totals.Passengers += r.Stats.Passengers
	}

	for planeID := range c.Fleet {
		plane, ok := s.cat.Plane(planeID)
		if !ok {
			continue
		}
		totals.IdleCost += rules.IdleCost(plane, c.Idle(planeID), &c.Modifiers)
	}

	totals.PropertyIncome, totals.PropertyCost = s.properties.Evaluate(c, s.date, s.cat)
	totals.PRSpend = c.PRBudget

	totals.NetIncome = totals.Revenue + totals.PropertyIncome -
		(totals.FlightCost + totals.MaintCost + totals.IdleCost + totals.PRSpend + totals.PropertyCost)

	fameMods := c.Modifiers.For(modifier.ChannelFame, modifier.Context{})
	c.Fame = rules.UpdateFame(c.Fame, c.MaintenanceEffort, c.ServiceEffort, c.PRBudget, fameMods)
	c.Money += totals.NetIncome
	c.LastPeriod = totals

	s.appendAudit(events.SimEvent{
		Type:      events.TypeWeekClosed,
		CompanyID: c.ID,
		Payload:   totals,
	})
}

// routeStats resolves the catalog entries for one route and runs the pure
// economics. Missing entries are a data error, not a crash: the route gets
// zeroed stats.
func (s *Simulation) routeStats(c *company.Company, r *company.Route) company.RouteStats {
	plane, okPlane := s.cat.Plane(r.PlaneTypeID)
	src, okSrc := s.cat.City(r.SourceID)
	tgt, okTgt := s.cat.City(r.TargetID)
	if !okPlane || !okSrc || !okTgt {
		s.log.Warn("route " + r.ID + " references unknown catalog entries, zeroing stats")
		return company.RouteStats{}
	}
	return rules.ComputeRoute(rules.RouteInput{
		RouteID:       r.ID,
		Plane:         plane,
		Source:        src,
		Target:        tgt,
		DistanceKm:    rules.Distance(src, tgt),
		Frequency:     r.Frequency,
		AssignedCount: r.AssignedCount,
		PriceModifier: r.PriceModifier,
		Mods:          &c.Modifiers,
	})
}

// refreshDerivedModifiers replants the load-factor modifiers implied by the
// company's fame and its owned properties.
func (s *Simulation) refreshDerivedModifiers(c *company.Company) {
	c.Modifiers.RemoveBySource(derivedSource)

	// Fame pulls every route's load factor up or down around the neutral 50.
	c.Modifiers.Upsert(modifier.Modifier{
		ID:      "derived-fame-" + c.ID,
		Source:  derivedSource,
		Channel: modifier.ChannelLoadFactor,
		Kind:    modifier.KindPercentage,
		Value:   (c.Fame - 50) / 250,
	})

	for _, p := range c.Properties {
		typ, ok := s.cat.Property(p.TypeID)
		if !ok {
			continue
		}
		bonus := typ.LoadFactorBonus + typ.RelationshipBonus
		if bonus == 0 {
			continue
		}
		// One entry per endpoint direction so any route touching the city
		// benefits, whichever side it appears on.
		c.Modifiers.Upsert(modifier.Modifier{
			ID:      "derived-prop-" + p.TypeID + "-" + p.CityID + "-src",
			Source:  derivedSource,
			Channel: modifier.ChannelLoadFactor,
			Kind:    modifier.KindPercentage,
			Value:   bonus,
			Scope:   modifier.Context{SourceID: p.CityID},
		})
		c.Modifiers.Upsert(modifier.Modifier{
			ID:      "derived-prop-" + p.TypeID + "-" + p.CityID + "-tgt",
			Source:  derivedSource,
			Channel: modifier.ChannelLoadFactor,
			Kind:    modifier.KindPercentage,
			Value:   bonus,
			Scope:   modifier.Context{TargetID: p.CityID},
		})
	}
}
