package engine

import (
	"sort"

	"github.com/openskies-sim/airtycoon/internal/domain/catalog"
	"github.com/openskies-sim/airtycoon/internal/domain/company"
	"github.com/openskies-sim/airtycoon/internal/domain/rules"
	"github.com/openskies-sim/airtycoon/internal/events"
)

// Tuning for the autonomous operator. The values are deliberately blunt:
// AI airlines are meant to be plausible competitors, not optimizers.
const (
	aiMaxRoutes = 12 // route-count ceiling per AI company
	// While under this many routes the AI only expands from its home city.
	aiHQPriority = 4
	// How many of the farthest reachable destinations are scored per plane type.
	aiTopDestinations = 8
	// fuelCost/capacity below this counts as an "efficient" aircraft.
	aiEfficiencyRatio = 0.02
	// Maintenance effort is raised to this once it drops under 50.
	aiMaintTarget = 60
)

// runMonthlyAI runs the heuristic pass for every non-player company with a
// non-negative cash balance, and re-tunes auto-managed routes for everyone.
func (s *Simulation) runMonthlyAI() {
	for _, id := range s.order {
		c := s.companies[id]
		s.autoManageRoutes(c)
		if c.IsPlayer || c.Money < 0 {
			continue
		}
		s.aiPass(c)
	}
}

// aiPass is one monthly decision round. Step 1 grows the network (open a
// route with idle metal, or buy more metal); step 2 independently keeps
// maintenance effort above the safety floor.
func (s *Simulation) aiPass(c *company.Company) {
	if len(c.Routes) < aiMaxRoutes {
		if s.hasIdleAircraft(c) {
			s.aiOpenRoute(c)
		} else {
			s.aiBuyPlane(c, 0)
		}
	}

	if c.MaintenanceEffort < 50 {
		err := s.Dispatch(c.ID, UpdateEfforts{
			Maintenance: aiMaintTarget,
			Service:     c.ServiceEffort,
			PRBudget:    c.PRBudget,
		})
		if err == nil {
			s.auditAI(c.ID, "raise maintenance effort")
		}
	}
}

func (s *Simulation) hasIdleAircraft(c *company.Company) bool {
	for planeID := range c.Fleet {
		if c.Idle(planeID) > 0 {
			return true
		}
	}
	return false
}

// aiBuyPlane purchases one aircraft. Candidates are affordable and on the
// market this year; types with a good fuel-per-seat ratio are preferred, the
// full affordable set is the fallback. The final pick is uniformly random so
// AI fleets stay heterogeneous.
func (s *Simulation) aiBuyPlane(c *company.Company, minRange float64) bool {
	var affordable []catalog.PlaneType
	for _, p := range s.cat.Planes() {
		if p.Price <= c.Money && p.Available(s.date.Year()) && p.Range > minRange {
			affordable = append(affordable, p)
		}
	}
	if len(affordable) == 0 {
		return false
	}

	var efficient []catalog.PlaneType
	for _, p := range affordable {
		if p.Capacity > 0 && p.FuelCost/float64(p.Capacity) < aiEfficiencyRatio {
			efficient = append(efficient, p)
		}
	}
	pool := efficient
	if len(pool) == 0 {
		pool = affordable
	}
	// Map iteration order leaks into Planes(); sort so a seeded run is
	// reproducible before the random pick.
	sort.Slice(pool, func(i, j int) bool { return pool[i].ID < pool[j].ID })

	pick := pool[s.rng.Intn(len(pool))]
	if err := s.Dispatch(c.ID, BuyPlane{PlaneTypeID: pick.ID, Delayed: true}); err != nil {
		return false
	}
	s.auditAI(c.ID, "ordered aircraft "+pick.ID)
	return true
}

// aiOpenRoute tries to put an idle airframe on the most profitable
// not-yet-connected destination. Young networks only expand from the HQ;
// if nothing works from a remote HQ the AI first shops for longer-range
// metal, then relaxes the HQ restriction once.
func (s *Simulation) aiOpenRoute(c *company.Company) {
	hqRestricted := len(c.Routes) < aiHQPriority

	origins := []string{c.HomeCityID}
	if !hqRestricted {
		origins = origins[:0]
		for cityID := range c.Network() {
			origins = append(origins, cityID)
		}
		sort.Strings(origins) // reproducible order under a fixed seed
	}

	if s.tryOpenFrom(c, origins) {
		return
	}

	if hqRestricted {
		if s.aiBuyPlane(c, s.longestOwnedRange(c)) {
			return
		}
		// Last resort: relax the HQ restriction one time and retry.
		origins = origins[:0]
		for cityID := range c.Network() {
			origins = append(origins, cityID)
		}
		sort.Strings(origins)
		s.tryOpenFrom(c, origins)
	}
}

func (s *Simulation) longestOwnedRange(c *company.Company) float64 {
	longest := 0.0
	for planeID := range c.Fleet {
		if p, ok := s.cat.Plane(planeID); ok && p.Range > longest {
			longest = p.Range
		}
	}
	return longest
}

// tryOpenFrom scores candidate destinations for every idle plane type
// (longest range first) and opens the best positive-profit route found.
func (s *Simulation) tryOpenFrom(c *company.Company, origins []string) bool {
	var idleTypes []catalog.PlaneType
	for planeID := range c.Fleet {
		if c.Idle(planeID) == 0 {
			continue
		}
		if p, ok := s.cat.Plane(planeID); ok {
			idleTypes = append(idleTypes, p)
		}
	}
	sort.Slice(idleTypes, func(i, j int) bool { return idleTypes[i].Range > idleTypes[j].Range })

	type candidate struct {
		originID string
		destID   string
		planeID  string
		advice   RouteAdvice
	}
	var best *candidate

	for _, plane := range idleTypes {
		for _, originID := range origins {
			origin, ok := s.cat.City(originID)
			if !ok {
				continue
			}
			dests := s.reachableNewDestinations(c, origin, plane)
			for _, dest := range dests {
				advice, err := s.OptimizeRoute(c, originID, dest.ID, plane.ID, 1)
				if err != nil || advice.Profit <= 0 {
					continue
				}
				if best == nil || advice.Profit > best.advice.Profit {
					best = &candidate{originID: originID, destID: dest.ID, planeID: plane.ID, advice: advice}
				}
			}
		}
	}

	if best == nil {
		return false
	}
	err := s.Dispatch(c.ID, AddRoute{
		SourceID:      best.originID,
		TargetID:      best.destID,
		PlaneTypeID:   best.planeID,
		AssignedCount: 1,
		Frequency:     best.advice.Frequency,
		PriceModifier: best.advice.PriceModifier,
		AutoManage:    true,
	})
	if err != nil {
		s.log.Warn("AI route rejected for " + c.ID + ": " + err.Error())
		return false
	}
	s.auditAI(c.ID, "opened route "+best.originID+" - "+best.destID)
	return true
}

// reachableNewDestinations lists cities within range of the plane that the
// company is not yet connected to from the origin, bounded to the farthest
// aiTopDestinations candidates.
func (s *Simulation) reachableNewDestinations(c *company.Company, origin catalog.City, plane catalog.PlaneType) []catalog.City {
	type scored struct {
		city catalog.City
		dist float64
	}
	var candidates []scored
	for _, city := range s.cat.Cities() {
		if city.ID == origin.ID || c.RouteBetween(origin.ID, city.ID) != nil {
			continue
		}
		dist := rules.Distance(origin, city)
		if dist <= 0 || dist > plane.Range {
			continue
		}
		candidates = append(candidates, scored{city: city, dist: dist})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].dist != candidates[j].dist {
			return candidates[i].dist > candidates[j].dist
		}
		return candidates[i].city.ID < candidates[j].city.ID
	})
	if len(candidates) > aiTopDestinations {
		candidates = candidates[:aiTopDestinations]
	}
	out := make([]catalog.City, len(candidates))
	for i, sc := range candidates {
		out[i] = sc.city
	}
	return out
}

// autoManageRoutes re-tunes every route with the auto-manage flag, player
// and AI alike, through the shared optimizer.
func (s *Simulation) autoManageRoutes(c *company.Company) {
	for _, r := range c.Routes {
		if !r.AutoManage {
			continue
		}
		advice, err := s.OptimizeRoute(c, r.SourceID, r.TargetID, r.PlaneTypeID, r.AssignedCount)
		if err != nil {
			continue
		}
		freq, price := advice.Frequency, advice.PriceModifier
		_ = s.Dispatch(c.ID, UpdateRoute{
			RouteID:       r.ID,
			Frequency:     &freq,
			PriceModifier: &price,
		})
	}
}

func (s *Simulation) auditAI(companyID, detail string) {
	s.appendAudit(events.SimEvent{
		Type:      events.TypeAIDecision,
		CompanyID: companyID,
		Payload:   detail,
	})
	s.log.Event("AI", companyID, detail)
}
