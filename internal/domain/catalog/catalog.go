// Package catalog holds the static content the simulation consumes: cities,
// aircraft types, airport properties and the historical event deck.
// Everything here is read-only once loaded; the engine never mutates it.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/openskies-sim/airtycoon/internal/domain/modifier"
)

// City is a destination on the map. Biz and Tour are the raw attractiveness
// attributes demand is derived from.
type City struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Biz  float64 `json:"biz"`
	Tour float64 `json:"tour"`
}

// PlaneType describes a purchasable aircraft model.
type PlaneType struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Speed    float64 `json:"speed"`    // km/h cruise
	Range    float64 `json:"range"`    // km
	Capacity int     `json:"capacity"` // seats
	Price    float64 `json:"price"`
	FuelCost float64 `json:"fuel_cost"` // per km per flight
	Maint    float64 `json:"maint"`     // weekly, per assigned unit
	Idle     float64 `json:"idle"`      // weekly, per idle unit
	Intro    int     `json:"intro"`     // first year on the market
	End      int     `json:"end"`       // last year on the market
}

// Available reports whether the model can be bought in the given year.
func (p PlaneType) Available(year int) bool {
	return year >= p.Intro && year <= p.End
}

// PropertyType describes a purchasable airport facility (lounge, hangar, hotel...).
type PropertyType struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	BaseCost          float64 `json:"base_cost"`
	BizMultiplier     float64 `json:"biz_multiplier"`
	TourMultiplier    float64 `json:"tour_multiplier"`
	FixedMaintCost    float64 `json:"fixed_maint_cost"`
	RelationshipBonus float64 `json:"relationship_bonus"` // load-factor bonus on routes touching the city
	LoadFactorBonus   float64 `json:"load_factor_bonus"`
}

// ScheduleMode selects how the scheduler samples the next occurrence of an
// event. The mode is declared in the catalog, never inferred from the window.
type ScheduleMode string

const (
	// ScheduleMTTH draws from an exponential distribution around MTTHDays.
	ScheduleMTTH ScheduleMode = "mtth"
	// ScheduleWindow draws a uniform date inside [Start, End]. Meant for
	// one-off historical set-pieces.
	ScheduleWindow ScheduleMode = "window"
)

// EffectKind enumerates what an event option can do to a company.
type EffectKind string

const (
	EffectMoney          EffectKind = "money"
	EffectFame           EffectKind = "fame"
	EffectAddModifier    EffectKind = "addModifier"
	EffectRemoveModifier EffectKind = "removeModifier"
	EffectTriggerEvent   EffectKind = "triggerEvent"
)

// ModifierSpec is the catalog-side description of a modifier an event plants.
// DurationDays is relative; the engine resolves it against the firing date
// (0 means permanent).
type ModifierSpec struct {
	Source       string           `json:"source"`
	Channel      modifier.Channel `json:"channel"`
	Kind         modifier.Kind    `json:"kind"`
	Value        float64          `json:"value"`
	Scope        modifier.Context `json:"scope,omitempty"`
	DurationDays int              `json:"duration_days,omitempty"`
}

// Effect is a single consequence of picking an event option.
type Effect struct {
	Kind         EffectKind    `json:"kind"`
	Amount       float64       `json:"amount,omitempty"`
	Modifier     *ModifierSpec `json:"modifier,omitempty"`
	RemoveSource string        `json:"remove_source,omitempty"`
	EventID      string        `json:"event_id,omitempty"`
}

// Option is one of the selectable answers of an event.
type Option struct {
	Label   string   `json:"label"`
	Effects []Effect `json:"effects"`
}

// Trigger is the predicate set evaluated against a company when an event
// comes due. Nil bounds are unconstrained; all set bounds must pass.
type Trigger struct {
	MinCash   *float64 `json:"min_cash,omitempty"`
	MaxCash   *float64 `json:"max_cash,omitempty"`
	MinFame   *float64 `json:"min_fame,omitempty"`
	MaxFame   *float64 `json:"max_fame,omitempty"`
	MinRoutes *int     `json:"min_routes,omitempty"`
	MaxRoutes *int     `json:"max_routes,omitempty"`
	MinFleet  *int     `json:"min_fleet,omitempty"`
}

// GameEvent is one entry of the historical/economic event deck.
type GameEvent struct {
	ID      string       `json:"id"`
	Title   string       `json:"title"`
	Text    string       `json:"text"`
	Mode    ScheduleMode `json:"mode"`
	Start   time.Time    `json:"start"`
	End     time.Time    `json:"end"`
	MTTH    float64      `json:"mtth_days"`
	OneTime bool         `json:"one_time"`
	Trigger Trigger      `json:"trigger"`
	Options []Option     `json:"options"`
}

// InWindow reports whether the event may still occur at the given date.
// Zero Start/End mean an open-ended window.
func (e GameEvent) InWindow(date time.Time) bool {
	if !e.Start.IsZero() && date.Before(e.Start) {
		return false
	}
	if !e.End.IsZero() && date.After(e.End) {
		return false
	}
	return true
}

// Catalog bundles every static table behind lookup maps.
type Catalog struct {
	cities     map[string]City
	planes     map[string]PlaneType
	properties map[string]PropertyType
	events     []GameEvent
	eventsByID map[string]GameEvent
}

// New assembles a catalog from already-decoded tables.
func New(cities []City, planes []PlaneType, properties []PropertyType, events []GameEvent) (*Catalog, error) {
	c := &Catalog{
		cities:     make(map[string]City, len(cities)),
		planes:     make(map[string]PlaneType, len(planes)),
		properties: make(map[string]PropertyType, len(properties)),
		events:     events,
		eventsByID: make(map[string]GameEvent, len(events)),
	}
	for _, city := range cities {
		if city.ID == "" {
			return nil, fmt.Errorf("city with empty id")
		}
		c.cities[city.ID] = city
	}
	for _, p := range planes {
		c.planes[p.ID] = p
	}
	for _, p := range properties {
		c.properties[p.ID] = p
	}
	for _, e := range events {
		if len(e.Options) == 0 {
			return nil, fmt.Errorf("event %s has no options", e.ID)
		}
		if e.Mode != ScheduleMTTH && e.Mode != ScheduleWindow {
			return nil, fmt.Errorf("event %s: unknown schedule mode %q", e.ID, e.Mode)
		}
		c.eventsByID[e.ID] = e
	}
	return c, nil
}

// Load reads cities.json, planes.json, properties.json and events.json from dir.
func Load(dir string) (*Catalog, error) {
	var (
		cities     []City
		planes     []PlaneType
		properties []PropertyType
		events     []GameEvent
	)
	if err := readJSON(filepath.Join(dir, "cities.json"), &cities); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(dir, "planes.json"), &planes); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(dir, "properties.json"), &properties); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(dir, "events.json"), &events); err != nil {
		return nil, err
	}
	return New(cities, planes, properties, events)
}

func readJSON(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read catalog file: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

// City looks up a city by id.
func (c *Catalog) City(id string) (City, bool) {
	city, ok := c.cities[id]
	return city, ok
}

// Plane looks up a plane type by id.
func (c *Catalog) Plane(id string) (PlaneType, bool) {
	p, ok := c.planes[id]
	return p, ok
}

// Property looks up a property type by id.
func (c *Catalog) Property(id string) (PropertyType, bool) {
	p, ok := c.properties[id]
	return p, ok
}

// Event looks up an event by id.
func (c *Catalog) Event(id string) (GameEvent, bool) {
	e, ok := c.eventsByID[id]
	return e, ok
}

// Cities returns every city. The slice is freshly allocated; the catalog
// itself stays immutable.
func (c *Catalog) Cities() []City {
	out := make([]City, 0, len(c.cities))
	for _, city := range c.cities {
		out = append(out, city)
	}
	return out
}

// Planes returns every plane type.
func (c *Catalog) Planes() []PlaneType {
	out := make([]PlaneType, 0, len(c.planes))
	for _, p := range c.planes {
		out = append(out, p)
	}
	return out
}

// Properties returns every property type.
func (c *Catalog) Properties() []PropertyType {
	out := make([]PropertyType, 0, len(c.properties))
	for _, p := range c.properties {
		out = append(out, p)
	}
	return out
}

// Events returns the full event deck.
func (c *Catalog) Events() []GameEvent {
	return c.events
}
