package store

import (
	"errors"

	"moments/internal/models"
)

// LoadOptions controls how strictly a dataset is validated.
type LoadOptions struct {
	// AllowDangling keeps moments, RSVPs and follows whose references do not
	// resolve. Queries drop them from joined results. Every other invariant is
	// still enforced.
	AllowDangling bool

	// OnDangling, if set, is called for each dangling reference kept under
	// AllowDangling.
	OnDangling func(err error)
}

// Load validates a dataset and builds its indexed snapshot. Every violation is
// reported, not just the first; the returned AppError has code
// INVALID_REFERENCE when any reference failed to resolve and VALIDATION_ERROR
// otherwise.
func Load(ds *models.Dataset, opts LoadOptions) (*Snapshot, error) {
	snap := newSnapshot(!opts.AllowDangling)

	var problems []error
	hasRefProblem := false
	record := func(err *models.AppError) {
		if err == nil {
			return
		}
		if err.Code == models.CodeInvalidReference {
			hasRefProblem = true
		}
		problems = append(problems, err)
	}

	for i := range ds.Users {
		u := ds.Users[i]
		record(snap.addUser(&u))
	}
	for i := range ds.Moments {
		m := ds.Moments[i]
		record(snap.addMoment(&m))
	}
	for i := range ds.RSVPs {
		r := ds.RSVPs[i]
		record(snap.addRSVP(&r))
	}
	for i := range ds.Follows {
		f := ds.Follows[i]
		record(snap.addFollow(&f))
	}

	if len(problems) > 0 {
		joined := errors.Join(problems...)
		if hasRefProblem {
			return nil, models.NewInvalidReferenceError("dataset references missing records", joined)
		}
		return nil, &models.AppError{
			Code:    models.CodeValidation,
			Message: "dataset failed validation",
			Err:     joined,
		}
	}

	if opts.AllowDangling && opts.OnDangling != nil {
		for _, err := range snap.danglingReferences() {
			opts.OnDangling(err)
		}
	}

	// Subsequent writes must not add new dangling references.
	snap.strictRefs = true
	return snap, nil
}

func (s *Snapshot) danglingReferences() []error {
	var out []error
	for _, id := range s.momentOrder {
		m := s.moments[id]
		if _, ok := s.users[m.HostID]; !ok {
			out = append(out, models.NewInvalidReferenceError("moment "+m.ID+": host "+m.HostID+" does not exist", nil))
		}
	}
	for _, id := range s.rsvpOrder {
		r := s.rsvps[id]
		if _, ok := s.users[r.UserID]; !ok {
			out = append(out, models.NewInvalidReferenceError("rsvp "+r.ID+": user "+r.UserID+" does not exist", nil))
		}
		if _, ok := s.moments[r.MomentID]; !ok {
			out = append(out, models.NewInvalidReferenceError("rsvp "+r.ID+": moment "+r.MomentID+" does not exist", nil))
		}
	}
	for _, id := range s.followOrder {
		f := s.follows[id]
		if _, ok := s.users[f.FollowerID]; !ok {
			out = append(out, models.NewInvalidReferenceError("follow "+f.ID+": follower "+f.FollowerID+" does not exist", nil))
		}
		if _, ok := s.users[f.FollowedID]; !ok {
			out = append(out, models.NewInvalidReferenceError("follow "+f.ID+": followed user "+f.FollowedID+" does not exist", nil))
		}
	}
	return out
}
