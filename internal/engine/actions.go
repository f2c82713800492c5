package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/openskies-sim/airtycoon/internal/domain/catalog"
	"github.com/openskies-sim/airtycoon/internal/domain/company"
	"github.com/openskies-sim/airtycoon/internal/domain/modifier"
	"github.com/openskies-sim/airtycoon/internal/domain/rules"
)

// Action-boundary failures. Every invalid payload maps onto one of these and
// leaves company state untouched.
var (
	ErrUnknownEntity     = errors.New("unknown entity")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrDuplicateProperty = errors.New("property already owned")
	ErrRouteConstraint   = errors.New("route constraint violated")
	ErrInvalidPayload    = errors.New("invalid payload")
)

// Action is the closed set of mutations the engine accepts. The player UI
// and the autonomous operator go through the exact same dispatcher; there is
// no side door around the invariants.
type Action interface {
	kind() string
}

// AddRoute opens a new connection.
type AddRoute struct {
	SourceID      string `json:"source_id"`
	TargetID      string `json:"target_id"`
	PlaneTypeID   string `json:"plane_type_id"`
	AssignedCount int    `json:"assigned_count"`
	Frequency     int    `json:"frequency"`
	PriceModifier int    `json:"price_modifier"`
	AutoManage    bool   `json:"auto_manage"`
}

// UpdateRoute retunes an existing connection. Zero-valued numeric fields keep
// their current value; AutoManage is only changed when non-nil.
type UpdateRoute struct {
	RouteID       string `json:"route_id"`
	AssignedCount *int   `json:"assigned_count,omitempty"`
	Frequency     *int   `json:"frequency,omitempty"`
	PriceModifier *int   `json:"price_modifier,omitempty"`
	AutoManage    *bool  `json:"auto_manage,omitempty"`
}

// DeleteRoute closes a connection and frees its aircraft.
type DeleteRoute struct {
	RouteID string `json:"route_id"`
}

// BuyPlane purchases one unit of a plane type. Delayed orders arrive via the
// task queue after the delivery lead time.
type BuyPlane struct {
	PlaneTypeID string `json:"plane_type_id"`
	Delayed     bool   `json:"delayed"`
}

// UpdateEfforts tunes the maintenance/service levels and the weekly PR spend.
type UpdateEfforts struct {
	Maintenance int     `json:"maintenance"`
	Service     int     `json:"service"`
	PRBudget    float64 `json:"pr_budget"`
}

// BuyProperty purchases a facility in a city.
type BuyProperty struct {
	TypeID string `json:"type_id"`
	CityID string `json:"city_id"`
}

// SellProperty disposes of a facility at half its base cost.
type SellProperty struct {
	TypeID string `json:"type_id"`
	CityID string `json:"city_id"`
}

// ApplyEventEffect applies one catalog event effect against the company.
// FiredAt anchors relative modifier durations.
type ApplyEventEffect struct {
	Effect  catalog.Effect `json:"effect"`
	FiredAt time.Time      `json:"fired_at"`
}

// AddMoney credits or debits the cash balance directly.
type AddMoney struct {
	Amount float64 `json:"amount"`
	Reason string  `json:"reason,omitempty"`
}

func (AddRoute) kind() string         { return "addRoute" }
func (UpdateRoute) kind() string      { return "updateRoute" }
func (DeleteRoute) kind() string      { return "deleteRoute" }
func (BuyPlane) kind() string         { return "buyPlane" }
func (UpdateEfforts) kind() string    { return "updateEfforts" }
func (BuyProperty) kind() string      { return "buyProperty" }
func (SellProperty) kind() string     { return "sellProperty" }
func (ApplyEventEffect) kind() string { return "applyEventEffect" }
func (AddMoney) kind() string         { return "addMoney" }

// Dispatch validates and applies one action against one company. Validation
// happens fully before any write, so a failed action never leaves a partial
// update behind.
func (s *Simulation) Dispatch(companyID string, a Action) error {
	c := s.companies[companyID]
	if c == nil {
		return fmt.Errorf("company %s: %w", companyID, ErrUnknownEntity)
	}

	switch act := a.(type) {
	case AddRoute:
		return s.applyAddRoute(c, act)
	case UpdateRoute:
		return s.applyUpdateRoute(c, act)
	case DeleteRoute:
		return s.applyDeleteRoute(c, act)
	case BuyPlane:
		return s.applyBuyPlane(c, act)
	case UpdateEfforts:
		return s.applyUpdateEfforts(c, act)
	case BuyProperty:
		return s.applyBuyProperty(c, act)
	case SellProperty:
		return s.applySellProperty(c, act)
	case ApplyEventEffect:
		return s.applyEventEffect(c, act)
	case AddMoney:
		c.Money += act.Amount
		return nil
	default:
		return fmt.Errorf("action %T: %w", a, ErrInvalidPayload)
	}
}

func (s *Simulation) applyAddRoute(c *company.Company, act AddRoute) error {
	src, okSrc := s.cat.City(act.SourceID)
	tgt, okTgt := s.cat.City(act.TargetID)
	plane, okPlane := s.cat.Plane(act.PlaneTypeID)
	if !okSrc || !okTgt || !okPlane {
		return fmt.Errorf("addRoute: %w", ErrUnknownEntity)
	}
	if act.SourceID == act.TargetID {
		return fmt.Errorf("addRoute: same endpoints: %w", ErrRouteConstraint)
	}
	if c.RouteBetween(act.SourceID, act.TargetID) != nil {
		return fmt.Errorf("addRoute: cities already connected: %w", ErrRouteConstraint)
	}
	if act.AssignedCount < 1 || act.AssignedCount > c.Idle(act.PlaneTypeID) {
		return fmt.Errorf("addRoute: %d aircraft not available: %w", act.AssignedCount, ErrRouteConstraint)
	}
	dist := rules.Distance(src, tgt)
	if dist > plane.Range {
		return fmt.Errorf("addRoute: %s out of range: %w", plane.ID, ErrRouteConstraint)
	}
	maxFreq := rules.MaxFrequency(plane, dist, act.AssignedCount)
	if act.Frequency < 1 || act.Frequency > maxFreq {
		return fmt.Errorf("addRoute: frequency %d outside 1..%d: %w", act.Frequency, maxFreq, ErrRouteConstraint)
	}
	if act.PriceModifier < -50 || act.PriceModifier > 50 {
		return fmt.Errorf("addRoute: price modifier out of bounds: %w", ErrInvalidPayload)
	}

	c.Routes = append(c.Routes, &company.Route{
		ID:            s.newID("R"),
		SourceID:      act.SourceID,
		TargetID:      act.TargetID,
		PlaneTypeID:   act.PlaneTypeID,
		AssignedCount: act.AssignedCount,
		Frequency:     act.Frequency,
		PriceModifier: act.PriceModifier,
		AutoManage:    act.AutoManage,
	})
	return nil
}

func (s *Simulation) applyUpdateRoute(c *company.Company, act UpdateRoute) error {
	r := c.Route(act.RouteID)
	if r == nil {
		return fmt.Errorf("updateRoute %s: %w", act.RouteID, ErrUnknownEntity)
	}
	src, okSrc := s.cat.City(r.SourceID)
	tgt, okTgt := s.cat.City(r.TargetID)
	if !okSrc || !okTgt {
		return fmt.Errorf("updateRoute: city gone from catalog: %w", ErrUnknownEntity)
	}
	plane, ok := s.cat.Plane(r.PlaneTypeID)
	if !ok {
		return fmt.Errorf("updateRoute: plane type %s: %w", r.PlaneTypeID, ErrUnknownEntity)
	}

	assigned := r.AssignedCount
	if act.AssignedCount != nil {
		assigned = *act.AssignedCount
	}
	frequency := r.Frequency
	if act.Frequency != nil {
		frequency = *act.Frequency
	}
	price := r.PriceModifier
	if act.PriceModifier != nil {
		price = *act.PriceModifier
	}

	// Available = idle units plus what this route already holds.
	if assigned < 1 || assigned > c.Idle(r.PlaneTypeID)+r.AssignedCount {
		return fmt.Errorf("updateRoute: %d aircraft not available: %w", assigned, ErrRouteConstraint)
	}
	dist := rules.Distance(src, tgt)
	maxFreq := rules.MaxFrequency(plane, dist, assigned)
	if frequency < 1 || frequency > maxFreq {
		return fmt.Errorf("updateRoute: frequency %d outside 1..%d: %w", frequency, maxFreq, ErrRouteConstraint)
	}
	if price < -50 || price > 50 {
		return fmt.Errorf("updateRoute: price modifier out of bounds: %w", ErrInvalidPayload)
	}

	r.AssignedCount = assigned
	r.Frequency = frequency
	r.PriceModifier = price
	if act.AutoManage != nil {
		r.AutoManage = *act.AutoManage
	}
	return nil
}

func (s *Simulation) applyDeleteRoute(c *company.Company, act DeleteRoute) error {
	for i, r := range c.Routes {
		if r.ID == act.RouteID {
			c.Routes = append(c.Routes[:i], c.Routes[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("deleteRoute %s: %w", act.RouteID, ErrUnknownEntity)
}

func (s *Simulation) applyBuyPlane(c *company.Company, act BuyPlane) error {
	plane, ok := s.cat.Plane(act.PlaneTypeID)
	if !ok {
		return fmt.Errorf("buyPlane %s: %w", act.PlaneTypeID, ErrUnknownEntity)
	}
	if !plane.Available(s.date.Year()) {
		return fmt.Errorf("buyPlane: %s not on the market in %d: %w", plane.ID, s.date.Year(), ErrUnknownEntity)
	}
	if c.Money < plane.Price {
		return fmt.Errorf("buyPlane %s at %.0f: %w", plane.ID, plane.Price, ErrInsufficientFunds)
	}

	c.Money -= plane.Price
	if act.Delayed {
		s.enqueueTask(Task{
			Kind:        TaskPlaneDelivery,
			CompanyID:   c.ID,
			PlaneTypeID: plane.ID,
			Count:       1,
			Due:         s.date.AddDate(0, 0, DeliveryLeadDays),
		})
	} else {
		c.Fleet[plane.ID]++
	}
	return nil
}

func (s *Simulation) applyUpdateEfforts(c *company.Company, act UpdateEfforts) error {
	if act.Maintenance < 0 || act.Maintenance > 100 || act.Service < 0 || act.Service > 100 {
		return fmt.Errorf("updateEfforts: efforts must be 0..100: %w", ErrInvalidPayload)
	}
	if act.PRBudget < 0 {
		return fmt.Errorf("updateEfforts: negative PR budget: %w", ErrInvalidPayload)
	}
	c.MaintenanceEffort = act.Maintenance
	c.ServiceEffort = act.Service
	c.PRBudget = act.PRBudget
	return nil
}

func (s *Simulation) applyBuyProperty(c *company.Company, act BuyProperty) error {
	prop, okProp := s.cat.Property(act.TypeID)
	_, okCity := s.cat.City(act.CityID)
	if !okProp || !okCity {
		return fmt.Errorf("buyProperty: %w", ErrUnknownEntity)
	}
	if c.HasProperty(act.TypeID, act.CityID) {
		return fmt.Errorf("buyProperty %s in %s: %w", act.TypeID, act.CityID, ErrDuplicateProperty)
	}
	if c.Money < prop.BaseCost {
		return fmt.Errorf("buyProperty %s: %w", act.TypeID, ErrInsufficientFunds)
	}

	c.Money -= prop.BaseCost
	c.Properties = append(c.Properties, company.OwnedProperty{
		CityID:       act.CityID,
		TypeID:       act.TypeID,
		PurchaseCost: prop.BaseCost,
	})
	return nil
}

func (s *Simulation) applySellProperty(c *company.Company, act SellProperty) error {
	for i, p := range c.Properties {
		if p.TypeID == act.TypeID && p.CityID == act.CityID {
			prop, ok := s.cat.Property(p.TypeID)
			refund := p.PurchaseCost / 2
			if ok {
				refund = prop.BaseCost / 2
			}
			c.Properties = append(c.Properties[:i], c.Properties[i+1:]...)
			c.Money += refund
			return nil
		}
	}
	return fmt.Errorf("sellProperty %s in %s: %w", act.TypeID, act.CityID, ErrUnknownEntity)
}

func (s *Simulation) applyEventEffect(c *company.Company, act ApplyEventEffect) error {
	eff := act.Effect
	switch eff.Kind {
	case catalog.EffectMoney:
		c.Money += eff.Amount
	case catalog.EffectFame:
		c.Fame += eff.Amount
		if c.Fame < 0 {
			c.Fame = 0
		}
		if c.Fame > 100 {
			c.Fame = 100
		}
	case catalog.EffectAddModifier:
		if eff.Modifier == nil || !eff.Modifier.Channel.Valid() {
			return fmt.Errorf("event effect: bad modifier spec: %w", ErrInvalidPayload)
		}
		m := modifier.Modifier{
			ID:      s.newID("M"),
			Source:  eff.Modifier.Source,
			Channel: eff.Modifier.Channel,
			Kind:    eff.Modifier.Kind,
			Value:   eff.Modifier.Value,
			Scope:   eff.Modifier.Scope,
		}
		if eff.Modifier.DurationDays > 0 {
			expires := act.FiredAt.AddDate(0, 0, eff.Modifier.DurationDays)
			m.Expires = &expires
		}
		c.Modifiers.Upsert(m)
	case catalog.EffectRemoveModifier:
		c.Modifiers.RemoveBySource(eff.RemoveSource)
	default:
		return fmt.Errorf("event effect kind %q: %w", eff.Kind, ErrInvalidPayload)
	}
	return nil
}
