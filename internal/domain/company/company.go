// Package company defines the mutable airline entities the engine owns.
// This package is PURE and must NOT import any infrastructure packages
// (network, events, platform).
package company

import (
	"github.com/openskies-sim/airtycoon/internal/domain/modifier"
)

// RouteStats holds the last weekly results for a single route.
type RouteStats struct {
	Revenue    float64 `json:"revenue"`
	FlightCost float64 `json:"flight_cost"`
	MaintCost  float64 `json:"maint_cost"`
	Profit     float64 `json:"profit"`
	Occupancy  float64 `json:"occupancy"` // final load factor, 0..1
	Passengers int     `json:"passengers"`
}

// Route is a scheduled connection between two cities flown by one plane type.
type Route struct {
	ID            string     `json:"id"`
	SourceID      string     `json:"source_id"`
	TargetID      string     `json:"target_id"`
	PlaneTypeID   string     `json:"plane_type_id"`
	AssignedCount int        `json:"assigned_count"`
	Frequency     int        `json:"frequency"`      // round trips per week
	PriceModifier int        `json:"price_modifier"` // -50..+50 percent
	AutoManage    bool       `json:"auto_manage"`
	Stats         RouteStats `json:"stats"`
}

// Touches reports whether the route has the given city as an endpoint.
func (r *Route) Touches(cityID string) bool {
	return r.SourceID == cityID || r.TargetID == cityID
}

// Connects reports whether the route links the two cities, in either direction.
func (r *Route) Connects(a, b string) bool {
	return (r.SourceID == a && r.TargetID == b) || (r.SourceID == b && r.TargetID == a)
}

// OwnedProperty is a facility the company bought in a city. At most one per
// (company, type, city).
type OwnedProperty struct {
	CityID       string  `json:"city_id"`
	TypeID       string  `json:"type_id"`
	PurchaseCost float64 `json:"purchase_cost"`
	WeeklyIncome float64 `json:"weekly_income"`
	WeeklyCost   float64 `json:"weekly_cost"`
}

// PeriodStats aggregates one weekly recompute.
type PeriodStats struct {
	Revenue        float64 `json:"revenue"`
	PropertyIncome float64 `json:"property_income"`
	FlightCost     float64 `json:"flight_cost"`
	MaintCost      float64 `json:"maint_cost"`
	IdleCost       float64 `json:"idle_cost"`
	PropertyCost   float64 `json:"property_cost"`
	PRSpend        float64 `json:"pr_spend"`
	NetIncome      float64 `json:"net_income"`
	Passengers     int     `json:"passengers"`
}

// Company is one airline, player-controlled or autonomous. It is owned
// exclusively by the simulation container and mutated only through the
// engine's action interface.
type Company struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	IsPlayer   bool   `json:"is_player"`
	HomeCityID string `json:"home_city_id"`

	Money float64 `json:"money"`
	Fame  float64 `json:"fame"` // 0..100

	MaintenanceEffort int     `json:"maintenance_effort"` // 0..100
	ServiceEffort     int     `json:"service_effort"`     // 0..100
	PRBudget          float64 `json:"pr_budget"`          // weekly spend

	Fleet      map[string]int  `json:"fleet"` // plane type id -> owned units
	Routes     []*Route        `json:"routes"`
	Properties []OwnedProperty `json:"properties"`
	Modifiers  modifier.Set    `json:"modifiers"`

	LastPeriod PeriodStats `json:"last_period"`
}

// New creates an airline with neutral starting efforts and no assets.
func New(id, name, homeCity string, cash float64) *Company {
	return &Company{
		ID:                id,
		Name:              name,
		HomeCityID:        homeCity,
		Money:             cash,
		Fame:              50,
		MaintenanceEffort: 50,
		ServiceEffort:     50,
		Fleet:             make(map[string]int),
	}
}

// Owned returns how many units of a plane type the company has.
func (c *Company) Owned(planeTypeID string) int {
	return c.Fleet[planeTypeID]
}

// Assigned returns how many units of a plane type are committed to routes.
func (c *Company) Assigned(planeTypeID string) int {
	n := 0
	for _, r := range c.Routes {
		if r.PlaneTypeID == planeTypeID {
			n += r.AssignedCount
		}
	}
	return n
}

// Idle returns owned-but-unassigned units of a plane type.
func (c *Company) Idle(planeTypeID string) int {
	idle := c.Owned(planeTypeID) - c.Assigned(planeTypeID)
	if idle < 0 {
		return 0
	}
	return idle
}

// Route finds a route by id.
func (c *Company) Route(id string) *Route {
	for _, r := range c.Routes {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// RouteBetween returns the existing route linking two cities, if any.
func (c *Company) RouteBetween(a, b string) *Route {
	for _, r := range c.Routes {
		if r.Connects(a, b) {
			return r
		}
	}
	return nil
}

// HasProperty reports whether the (type, city) slot is already taken.
func (c *Company) HasProperty(typeID, cityID string) bool {
	for _, p := range c.Properties {
		if p.TypeID == typeID && p.CityID == cityID {
			return true
		}
	}
	return false
}

// Network returns the set of cities the company currently serves,
// including its home city.
func (c *Company) Network() map[string]bool {
	cities := map[string]bool{c.HomeCityID: true}
	for _, r := range c.Routes {
		cities[r.SourceID] = true
		cities[r.TargetID] = true
	}
	return cities
}
