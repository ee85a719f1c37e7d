package service

import (
	"context"
	"fmt"

	"moments/internal/models"
	"moments/internal/observability"
	"moments/internal/store"
	"moments/internal/validation"

	"github.com/google/uuid"
)

type MomentService struct {
	core
}

func NewMomentService(deps Deps) *MomentService {
	return &MomentService{core: newCore(deps)}
}

// GetMoment returns the moment with id, its status resolved.
func (s *MomentService) GetMoment(ctx context.Context, id string) (*models.Moment, bool) {
	defer observability.TrackQuery("get_moment")()
	m, ok := s.snapshot().Moment(id)
	if !ok {
		return nil, false
	}
	m = s.status.Apply(m)
	return &m, true
}

// GetMomentDetail returns a moment with its host, RSVP tallies and the number
// of places not yet taken by "going" RSVPs.
func (s *MomentService) GetMomentDetail(ctx context.Context, id string) (*models.MomentDetail, bool) {
	defer observability.TrackQuery("get_moment_detail")()
	snap := s.snapshot()
	m, ok := snap.Moment(id)
	if !ok {
		return nil, false
	}

	detail := &models.MomentDetail{
		Moment: s.status.Apply(m),
		Counts: rsvpCounts(snap, m.ID),
	}
	if host, ok := snap.User(m.HostID); ok {
		detail.Host = &host
	}
	detail.SpotsLeft = max(0, m.MaxCapacity-detail.Counts.Going)
	return detail, true
}

// GetUserMoments partitions the moments userID hosts or responded to by
// status. Each list follows the insertion order of the moments relation.
func (s *MomentService) GetUserMoments(ctx context.Context, userID string) models.UserMoments {
	defer observability.TrackQuery("get_user_moments")()
	return partitionMoments(s.snapshot(), s.status, userID)
}

func partitionMoments(snap *store.Snapshot, status StatusResolver, userID string) models.UserMoments {
	out := models.UserMoments{
		Hosting:     []models.Moment{},
		Hosted:      []models.Moment{},
		Going:       []models.Moment{},
		Went:        []models.Moment{},
		Considering: []models.Moment{},
	}

	for _, m := range status.ApplyAll(snap.MomentsHostedBy(userID)) {
		if m.Status == models.MomentStatusUpcoming {
			out.Hosting = append(out.Hosting, m)
		} else {
			out.Hosted = append(out.Hosted, m)
		}
	}

	if len(snap.RSVPsByUser(userID)) == 0 {
		return out
	}
	for _, m := range status.ApplyAll(snap.Moments()) {
		r, ok := snap.RSVPFor(userID, m.ID)
		if !ok {
			continue
		}
		upcoming := m.Status == models.MomentStatusUpcoming
		switch r.Status {
		case models.RSVPStatusGoing:
			if upcoming {
				out.Going = append(out.Going, m)
			} else {
				out.Went = append(out.Went, m)
			}
		case models.RSVPStatusMaybe:
			if upcoming {
				out.Considering = append(out.Considering, m)
			}
		}
	}
	return out
}

// GetMomentRSVPs lists a moment's RSVPs in insertion order, each with its
// user. User is nil when the user cannot be resolved.
func (s *MomentService) GetMomentRSVPs(ctx context.Context, momentID string) []models.RSVPWithUser {
	defer observability.TrackQuery("get_moment_rsvps")()
	snap := s.snapshot()
	rsvps := snap.RSVPsForMoment(momentID)
	out := make([]models.RSVPWithUser, 0, len(rsvps))
	for _, r := range rsvps {
		entry := models.RSVPWithUser{RSVP: r}
		if u, ok := snap.User(r.UserID); ok {
			entry.User = &u
		}
		out = append(out, entry)
	}
	return out
}

// GetRSVPCount counts the "going" RSVPs on a moment.
func (s *MomentService) GetRSVPCount(ctx context.Context, momentID string) int {
	defer observability.TrackQuery("get_rsvp_count")()
	return rsvpCounts(s.snapshot(), momentID).Going
}

func rsvpCounts(snap *store.Snapshot, momentID string) models.RSVPCounts {
	var counts models.RSVPCounts
	for _, r := range snap.RSVPsForMoment(momentID) {
		switch r.Status {
		case models.RSVPStatusGoing:
			counts.Going++
		case models.RSVPStatusMaybe:
			counts.Interested++
		case models.RSVPStatusNotGoing:
			counts.NotGoing++
		}
	}
	return counts
}

// CreateMoment validates draft and creates a moment hosted by the session's user.
func (s *MomentService) CreateMoment(ctx context.Context, session models.Session, draft models.MomentDraft) (*models.Moment, error) {
	span, ctx := observability.StartServiceSpan(ctx, "MomentService", "CreateMoment")
	defer span.End()

	snap := s.snapshot()
	if err := s.requireWriter(snap, session); err != nil {
		span.SetError(err)
		return nil, err
	}

	validation.NormalizeMomentDraft(&draft)
	if err := validation.ValidateMomentDraft(draft); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	now := s.now().UTC()
	moment, version, err := s.writer.InsertMoment(ctx, models.Moment{
		ID:          uuid.NewString(),
		HostID:      session.UserID,
		Title:       draft.Title,
		Description: draft.Description,
		Date:        draft.Date.UTC(),
		MaxCapacity: draft.MaxCapacity,
		Location:    draft.Location,
		Status:      s.status.For(draft.Date),
		CreatedAt:   now,
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	s.logger.LogServiceCall(ctx, "MomentService", "CreateMoment", map[string]interface{}{
		"moment_id": moment.ID,
		"host_id":   moment.HostID,
		"version":   version,
	})
	s.publish(ctx, models.CreatedFeedItem(&moment))
	return &moment, nil
}

// RSVP records the session user's answer to a moment. A user answers a moment
// at most once.
func (s *MomentService) RSVP(ctx context.Context, session models.Session, momentID string, status models.RSVPStatus) (*models.RSVP, error) {
	span, ctx := observability.StartServiceSpan(ctx, "MomentService", "RSVP")
	defer span.End()

	snap := s.snapshot()
	if err := s.requireWriter(snap, session); err != nil {
		span.SetError(err)
		return nil, err
	}
	if !status.Valid() {
		return nil, models.NewValidationError(fmt.Sprintf("RSVP status must be going, maybe or not_going (got %q)", status))
	}
	moment, ok := snap.Moment(momentID)
	if !ok {
		return nil, models.NewNotFoundError("Moment", momentID)
	}
	if _, exists := snap.RSVPFor(session.UserID, momentID); exists {
		return nil, models.NewConflictError(fmt.Sprintf("already responded to moment %q", momentID))
	}

	rsvp, version, err := s.writer.InsertRSVP(ctx, models.RSVP{
		ID:        uuid.NewString(),
		UserID:    session.UserID,
		MomentID:  momentID,
		Status:    status,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	s.logger.LogServiceCall(ctx, "MomentService", "RSVP", map[string]interface{}{
		"rsvp_id":   rsvp.ID,
		"moment_id": rsvp.MomentID,
		"status":    string(rsvp.Status),
		"version":   version,
	})
	s.publish(ctx, models.RSVPFeedItem(&rsvp, &moment))
	return &rsvp, nil
}
