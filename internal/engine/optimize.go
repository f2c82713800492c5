package engine

import (
	"fmt"

	"github.com/openskies-sim/airtycoon/internal/domain/company"
	"github.com/openskies-sim/airtycoon/internal/domain/rules"
)

// RouteAdvice is the result of the shared route-configuration search, used
// by the AI and by the player's auto-manage toggle.
type RouteAdvice struct {
	Frequency     int     `json:"frequency"`
	PriceModifier int     `json:"price_modifier"`
	Profit        float64 `json:"profit"`
	LoadFactor    float64 `json:"load_factor"`
	Passengers    int     `json:"passengers"`
}

// OptimizeRoute finds a good frequency and price modifier for a hypothetical
// or existing route. It is a hill-climb, not an exhaustive scan: frequency is
// scanned downward from the feasible maximum and the search stops at the
// first profit decrease after an improvement; the price modifier scan over
// {+50,+40,...,-50} follows the same early-exit rule at the chosen frequency.
func (s *Simulation) OptimizeRoute(c *company.Company, sourceID, targetID, planeTypeID string, assigned int) (RouteAdvice, error) {
	src, okSrc := s.cat.City(sourceID)
	tgt, okTgt := s.cat.City(targetID)
	plane, okPlane := s.cat.Plane(planeTypeID)
	if !okSrc || !okTgt || !okPlane {
		return RouteAdvice{}, fmt.Errorf("optimizeRoute: %w", ErrUnknownEntity)
	}

	dist := rules.Distance(src, tgt)
	maxFreq := rules.MaxFrequency(plane, dist, assigned)
	if maxFreq < 1 {
		return RouteAdvice{}, fmt.Errorf("optimizeRoute: no feasible frequency: %w", ErrRouteConstraint)
	}

	evaluate := func(freq, priceMod int) company.RouteStats {
		return rules.ComputeRoute(rules.RouteInput{
			RouteID:       "", // hypothetical: no route-scoped modifiers yet
			Plane:         plane,
			Source:        src,
			Target:        tgt,
			DistanceKm:    dist,
			Frequency:     freq,
			AssignedCount: assigned,
			PriceModifier: priceMod,
			Mods:          &c.Modifiers,
		})
	}

	best := evaluate(maxFreq, 0)
	bestFreq := maxFreq
	improved := false
	for freq := maxFreq - 1; freq >= 1; freq-- {
		stats := evaluate(freq, 0)
		if stats.Profit > best.Profit {
			best = stats
			bestFreq = freq
			improved = true
		} else if improved && stats.Profit < best.Profit {
			break
		}
	}

	bestPrice := 0
	improved = false
	for priceMod := 50; priceMod >= -50; priceMod -= 10 {
		stats := evaluate(bestFreq, priceMod)
		if stats.Profit > best.Profit {
			best = stats
			bestPrice = priceMod
			improved = true
		} else if improved && stats.Profit < best.Profit {
			break
		}
	}

	return RouteAdvice{
		Frequency:     bestFreq,
		PriceModifier: bestPrice,
		Profit:        best.Profit,
		LoadFactor:    best.Occupancy,
		Passengers:    best.Passengers,
	}, nil
}
