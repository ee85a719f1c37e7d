package service

import (
	"time"

	"moments/internal/models"
)

// StatusMode selects where a moment's upcoming/past status comes from.
type StatusMode string

const (
	// StatusStored uses the status persisted with the moment.
	StatusStored StatusMode = "stored"
	// StatusDerived computes the status from the moment's date and the clock.
	StatusDerived StatusMode = "derived"
)

// StatusResolver applies the configured status mode to moments as they leave
// a query.
type StatusResolver struct {
	Mode StatusMode
	Now  func() time.Time
}

// For returns the status a moment dated date has right now: upcoming until
// its date has passed.
func (r StatusResolver) For(date time.Time) models.MomentStatus {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	if date.Before(now()) {
		return models.MomentStatusPast
	}
	return models.MomentStatusUpcoming
}

// Apply returns m with its status resolved.
func (r StatusResolver) Apply(m models.Moment) models.Moment {
	if r.Mode == StatusDerived {
		m.Status = r.For(m.Date)
	}
	return m
}

// ApplyAll resolves the status of every moment in place.
func (r StatusResolver) ApplyAll(ms []models.Moment) []models.Moment {
	if r.Mode != StatusDerived {
		return ms
	}
	for i := range ms {
		ms[i].Status = r.For(ms[i].Date)
	}
	return ms
}
