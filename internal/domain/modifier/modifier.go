// Package modifier implements the generic effect store the economic model
// queries and the event system mutates. A modifier is a named, optionally
// scoped, optionally expiring adjustment on one effect channel.
// This package is PURE and must NOT import any infrastructure packages.
package modifier

import "time"

// Channel is the closed set of effect categories a modifier can target.
// Adding a channel here is a deliberate API change; there is no open-ended
// string routing.
type Channel string

const (
	ChannelRevenue     Channel = "revenue"
	ChannelDemand      Channel = "demand"
	ChannelLoadFactor  Channel = "loadFactor"
	ChannelFlightCost  Channel = "flightCost"
	ChannelMaintCost   Channel = "maintenanceCost"
	ChannelIdleCost    Channel = "idleCost"
	ChannelFame        Channel = "fame"
	ChannelCityBiz     Channel = "cityBiz"
	ChannelCityTour    Channel = "cityTour"
)

// Valid reports whether c is a known channel.
func (c Channel) Valid() bool {
	switch c {
	case ChannelRevenue, ChannelDemand, ChannelLoadFactor, ChannelFlightCost,
		ChannelMaintCost, ChannelIdleCost, ChannelFame, ChannelCityBiz, ChannelCityTour:
		return true
	}
	return false
}

// Kind selects how a modifier's value combines with the base number.
type Kind string

const (
	// KindFlat adds Value after all multiplicative entries.
	KindFlat Kind = "flat"
	// KindMultiplier multiplies by Value.
	KindMultiplier Kind = "multiplier"
	// KindPercentage multiplies by 1+Value (0.1 == +10%).
	KindPercentage Kind = "percentage"
)

// Context scopes a modifier to part of the world. An empty field means
// "unconstrained". A modifier's scope matches a query when every non-empty
// scope field equals the query's field (subset match).
type Context struct {
	CityID      string `json:"city_id,omitempty"`
	SourceID    string `json:"source_id,omitempty"`
	TargetID    string `json:"target_id,omitempty"`
	RouteID     string `json:"route_id,omitempty"`
	PlaneTypeID string `json:"plane_type_id,omitempty"`
}

// Matches reports whether a modifier scoped with c applies to query q.
func (c Context) Matches(q Context) bool {
	if c.CityID != "" && c.CityID != q.CityID {
		return false
	}
	if c.SourceID != "" && c.SourceID != q.SourceID {
		return false
	}
	if c.TargetID != "" && c.TargetID != q.TargetID {
		return false
	}
	if c.RouteID != "" && c.RouteID != q.RouteID {
		return false
	}
	if c.PlaneTypeID != "" && c.PlaneTypeID != q.PlaneTypeID {
		return false
	}
	return true
}

// Modifier is one live effect entry. A nil Expires means permanent.
type Modifier struct {
	ID      string     `json:"id"`
	Source  string     `json:"source"`
	Channel Channel    `json:"channel"`
	Kind    Kind       `json:"kind"`
	Value   float64    `json:"value"`
	Scope   Context    `json:"scope,omitempty"`
	Expires *time.Time `json:"expires,omitempty"`
}

// Expired reports whether the modifier is gone at the given date.
func (m Modifier) Expired(now time.Time) bool {
	return m.Expires != nil && !m.Expires.After(now)
}

// Set is the per-company modifier registry. The Active slice is exported so
// a company snapshot serializes the registry as-is.
type Set struct {
	Active []Modifier `json:"active"`
}

// Upsert adds m, replacing any prior entry with the same ID.
func (s *Set) Upsert(m Modifier) {
	for i := range s.Active {
		if s.Active[i].ID == m.ID {
			s.Active[i] = m
			return
		}
	}
	s.Active = append(s.Active, m)
}

// Remove deletes the entry with the given ID, if present.
func (s *Set) Remove(id string) {
	for i := range s.Active {
		if s.Active[i].ID == id {
			s.Active = append(s.Active[:i], s.Active[i+1:]...)
			return
		}
	}
}

// RemoveBySource deletes every entry planted by the given source label.
func (s *Set) RemoveBySource(source string) {
	kept := s.Active[:0]
	for _, m := range s.Active {
		if m.Source != source {
			kept = append(kept, m)
		}
	}
	s.Active = kept
}

// For returns the active modifiers on the given channel whose scope matches q.
func (s *Set) For(ch Channel, q Context) []Modifier {
	var out []Modifier
	for _, m := range s.Active {
		if m.Channel == ch && m.Scope.Matches(q) {
			out = append(out, m)
		}
	}
	return out
}

// Sweep removes every entry whose expiry is at or before now and returns how
// many were dropped. Permanent entries are kept.
func (s *Set) Sweep(now time.Time) int {
	kept := s.Active[:0]
	dropped := 0
	for _, m := range s.Active {
		if m.Expired(now) {
			dropped++
			continue
		}
		kept = append(kept, m)
	}
	s.Active = kept
	return dropped
}

// Apply folds mods into base: multiplicative entries (multiplier and
// percentage) compose first, flat entries sum and are added afterwards.
// The order is part of the contract and must not change.
func Apply(base float64, mods []Modifier) float64 {
	factor := 1.0
	flat := 0.0
	for _, m := range mods {
		switch m.Kind {
		case KindMultiplier:
			factor *= m.Value
		case KindPercentage:
			factor *= 1 + m.Value
		case KindFlat:
			flat += m.Value
		}
	}
	return base*factor + flat
}
