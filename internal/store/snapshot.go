// Package store holds the four relations in memory as immutable, id-indexed
// snapshots and serializes every write through a single writer goroutine.
package store

import (
	"fmt"
	"maps"
	"slices"

	"moments/internal/models"
	"moments/internal/validation"

	"github.com/google/uuid"
)

type pairKey struct {
	a, b string
}

// Snapshot is an immutable view of all relations at one version. Accessors
// return copies, so callers may keep or modify what they receive.
type Snapshot struct {
	// epoch identifies the lineage of snapshots a version counts within.
	epoch   string
	version uint64

	users     map[string]*models.User
	userOrder []string
	usernames map[string]string

	moments       map[string]*models.Moment
	momentOrder   []string
	momentsByHost map[string][]string

	rsvps         map[string]*models.RSVP
	rsvpOrder     []string
	rsvpsByMoment map[string][]string
	rsvpsByUser   map[string][]string
	rsvpPairs     map[pairKey]string

	follows           map[string]*models.Follow
	followOrder       []string
	followsByFollower map[string][]string
	followsByFollowed map[string][]string
	followPairs       map[pairKey]string

	// strictRefs rejects records that reference missing entities.
	strictRefs bool
}

func newSnapshot(strictRefs bool) *Snapshot {
	return &Snapshot{
		epoch:             uuid.NewString(),
		users:             make(map[string]*models.User),
		usernames:         make(map[string]string),
		moments:           make(map[string]*models.Moment),
		momentsByHost:     make(map[string][]string),
		rsvps:             make(map[string]*models.RSVP),
		rsvpsByMoment:     make(map[string][]string),
		rsvpsByUser:       make(map[string][]string),
		rsvpPairs:         make(map[pairKey]string),
		follows:           make(map[string]*models.Follow),
		followsByFollower: make(map[string][]string),
		followsByFollowed: make(map[string][]string),
		followPairs:       make(map[pairKey]string),
		strictRefs:        strictRefs,
	}
}

// Empty returns a snapshot with no records.
func Empty() *Snapshot {
	return newSnapshot(true)
}

// clone copies the containers of s. Records are shared since nothing mutates
// them after insertion; index slices are clipped so appends never alias.
func (s *Snapshot) clone() *Snapshot {
	return &Snapshot{
		epoch:             s.epoch,
		version:           s.version,
		users:             maps.Clone(s.users),
		userOrder:         slices.Clip(s.userOrder),
		usernames:         maps.Clone(s.usernames),
		moments:           maps.Clone(s.moments),
		momentOrder:       slices.Clip(s.momentOrder),
		momentsByHost:     cloneIndex(s.momentsByHost),
		rsvps:             maps.Clone(s.rsvps),
		rsvpOrder:         slices.Clip(s.rsvpOrder),
		rsvpsByMoment:     cloneIndex(s.rsvpsByMoment),
		rsvpsByUser:       cloneIndex(s.rsvpsByUser),
		rsvpPairs:         maps.Clone(s.rsvpPairs),
		follows:           maps.Clone(s.follows),
		followOrder:       slices.Clip(s.followOrder),
		followsByFollower: cloneIndex(s.followsByFollower),
		followsByFollowed: cloneIndex(s.followsByFollowed),
		followPairs:       maps.Clone(s.followPairs),
		// Writes always check references, whatever the seed allowed.
		strictRefs: true,
	}
}

func cloneIndex(idx map[string][]string) map[string][]string {
	out := make(map[string][]string, len(idx))
	for k, v := range idx {
		out[k] = slices.Clip(v)
	}
	return out
}

// Version increases by one with every committed write.
func (s *Snapshot) Version() uint64 { return s.version }

// Epoch is random per loaded dataset and per Store. Versions are only
// comparable between snapshots sharing an epoch, so anything keyed on a
// version outside this process must include it.
func (s *Snapshot) Epoch() string { return s.epoch }

// User returns the user with the given id.
func (s *Snapshot) User(id string) (models.User, bool) {
	u, ok := s.users[id]
	if !ok {
		return models.User{}, false
	}
	return *u, true
}

// UserByUsername looks a user up by username, ignoring case and a leading "@".
func (s *Snapshot) UserByUsername(name string) (models.User, bool) {
	id, ok := s.usernames[validation.CanonicalUsername(name)]
	if !ok {
		return models.User{}, false
	}
	return s.User(id)
}

// Users returns all users in insertion order.
func (s *Snapshot) Users() []models.User {
	return collect(s.userOrder, s.users)
}

// Moment returns the moment with the given id.
func (s *Snapshot) Moment(id string) (models.Moment, bool) {
	m, ok := s.moments[id]
	if !ok {
		return models.Moment{}, false
	}
	return *m, true
}

// Moments returns all moments in insertion order.
func (s *Snapshot) Moments() []models.Moment {
	return collect(s.momentOrder, s.moments)
}

// MomentsHostedBy returns the moments hosted by userID in insertion order.
func (s *Snapshot) MomentsHostedBy(userID string) []models.Moment {
	return collect(s.momentsByHost[userID], s.moments)
}

// RSVPs returns all RSVPs in insertion order.
func (s *Snapshot) RSVPs() []models.RSVP {
	return collect(s.rsvpOrder, s.rsvps)
}

// RSVPsForMoment returns the RSVPs on a moment in insertion order.
func (s *Snapshot) RSVPsForMoment(momentID string) []models.RSVP {
	return collect(s.rsvpsByMoment[momentID], s.rsvps)
}

// RSVPsByUser returns the RSVPs a user made in insertion order.
func (s *Snapshot) RSVPsByUser(userID string) []models.RSVP {
	return collect(s.rsvpsByUser[userID], s.rsvps)
}

// RSVPFor returns the RSVP userID made on momentID, if any.
func (s *Snapshot) RSVPFor(userID, momentID string) (models.RSVP, bool) {
	id, ok := s.rsvpPairs[pairKey{userID, momentID}]
	if !ok {
		return models.RSVP{}, false
	}
	return *s.rsvps[id], true
}

// Follows returns all follow edges in insertion order.
func (s *Snapshot) Follows() []models.Follow {
	return collect(s.followOrder, s.follows)
}

// FollowsTo returns the edges pointing at userID in insertion order.
func (s *Snapshot) FollowsTo(userID string) []models.Follow {
	return collect(s.followsByFollowed[userID], s.follows)
}

// FollowsFrom returns the edges leaving userID in insertion order.
func (s *Snapshot) FollowsFrom(userID string) []models.Follow {
	return collect(s.followsByFollower[userID], s.follows)
}

// FollowerCount counts raw edges pointing at userID.
func (s *Snapshot) FollowerCount(userID string) int {
	return len(s.followsByFollowed[userID])
}

// FollowingCount counts raw edges leaving userID.
func (s *Snapshot) FollowingCount(userID string) int {
	return len(s.followsByFollower[userID])
}

// HasFollow reports whether the directed edge followerID -> followedID exists.
func (s *Snapshot) HasFollow(followerID, followedID string) bool {
	_, ok := s.followPairs[pairKey{followerID, followedID}]
	return ok
}

// Dataset exports the snapshot as four lists in insertion order.
func (s *Snapshot) Dataset() *models.Dataset {
	return &models.Dataset{
		Users:   s.Users(),
		Moments: s.Moments(),
		RSVPs:   s.RSVPs(),
		Follows: s.Follows(),
	}
}

func collect[T any](ids []string, records map[string]*T) []T {
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if r, ok := records[id]; ok {
			out = append(out, *r)
		}
	}
	return out
}

func (s *Snapshot) addUser(u *models.User) *models.AppError {
	if u.ID == "" {
		return models.NewValidationError("user id is required")
	}
	if _, exists := s.users[u.ID]; exists {
		return models.NewConflictError(fmt.Sprintf("duplicate user id %q", u.ID))
	}
	if err := validation.ValidateUsername(u.Username); err != nil {
		return models.NewValidationError(fmt.Sprintf("user %q: %v", u.ID, err))
	}
	canonical := validation.CanonicalUsername(u.Username)
	if other, taken := s.usernames[canonical]; taken {
		return models.NewConflictError(fmt.Sprintf("user %q: username %q already taken by %q", u.ID, u.Username, other))
	}

	u.Seq = int64(len(s.userOrder) + 1)
	s.users[u.ID] = u
	s.userOrder = append(s.userOrder, u.ID)
	s.usernames[canonical] = u.ID
	return nil
}

func (s *Snapshot) addMoment(m *models.Moment) *models.AppError {
	if m.ID == "" {
		return models.NewValidationError("moment id is required")
	}
	if _, exists := s.moments[m.ID]; exists {
		return models.NewConflictError(fmt.Sprintf("duplicate moment id %q", m.ID))
	}
	if m.Title == "" {
		return models.NewValidationError(fmt.Sprintf("moment %q: title is required", m.ID))
	}
	if m.MaxCapacity < 1 {
		return models.NewValidationError(fmt.Sprintf("moment %q: max capacity must be positive, got %d", m.ID, m.MaxCapacity))
	}
	if !m.Status.Valid() {
		return models.NewValidationError(fmt.Sprintf("moment %q: unknown status %q", m.ID, m.Status))
	}
	if _, ok := s.users[m.HostID]; !ok && s.strictRefs {
		return models.NewInvalidReferenceError(fmt.Sprintf("moment %q: host %q does not exist", m.ID, m.HostID), nil)
	}

	m.Seq = int64(len(s.momentOrder) + 1)
	s.moments[m.ID] = m
	s.momentOrder = append(s.momentOrder, m.ID)
	s.momentsByHost[m.HostID] = append(s.momentsByHost[m.HostID], m.ID)
	return nil
}

func (s *Snapshot) addRSVP(r *models.RSVP) *models.AppError {
	if r.ID == "" {
		return models.NewValidationError("rsvp id is required")
	}
	if _, exists := s.rsvps[r.ID]; exists {
		return models.NewConflictError(fmt.Sprintf("duplicate rsvp id %q", r.ID))
	}
	if !r.Status.Valid() {
		return models.NewValidationError(fmt.Sprintf("rsvp %q: unknown status %q", r.ID, r.Status))
	}
	if s.strictRefs {
		if _, ok := s.users[r.UserID]; !ok {
			return models.NewInvalidReferenceError(fmt.Sprintf("rsvp %q: user %q does not exist", r.ID, r.UserID), nil)
		}
		if _, ok := s.moments[r.MomentID]; !ok {
			return models.NewInvalidReferenceError(fmt.Sprintf("rsvp %q: moment %q does not exist", r.ID, r.MomentID), nil)
		}
	}
	key := pairKey{r.UserID, r.MomentID}
	if other, exists := s.rsvpPairs[key]; exists {
		return models.NewConflictError(fmt.Sprintf("rsvp %q: user %q already responded to moment %q (rsvp %q)", r.ID, r.UserID, r.MomentID, other))
	}

	r.Seq = int64(len(s.rsvpOrder) + 1)
	s.rsvps[r.ID] = r
	s.rsvpOrder = append(s.rsvpOrder, r.ID)
	s.rsvpsByMoment[r.MomentID] = append(s.rsvpsByMoment[r.MomentID], r.ID)
	s.rsvpsByUser[r.UserID] = append(s.rsvpsByUser[r.UserID], r.ID)
	s.rsvpPairs[key] = r.ID
	return nil
}

func (s *Snapshot) addFollow(f *models.Follow) *models.AppError {
	if f.ID == "" {
		return models.NewValidationError("follow id is required")
	}
	if _, exists := s.follows[f.ID]; exists {
		return models.NewConflictError(fmt.Sprintf("duplicate follow id %q", f.ID))
	}
	if f.FollowerID == f.FollowedID {
		return models.NewValidationError(fmt.Sprintf("follow %q: user %q cannot follow themselves", f.ID, f.FollowerID))
	}
	if s.strictRefs {
		if _, ok := s.users[f.FollowerID]; !ok {
			return models.NewInvalidReferenceError(fmt.Sprintf("follow %q: follower %q does not exist", f.ID, f.FollowerID), nil)
		}
		if _, ok := s.users[f.FollowedID]; !ok {
			return models.NewInvalidReferenceError(fmt.Sprintf("follow %q: followed user %q does not exist", f.ID, f.FollowedID), nil)
		}
	}
	key := pairKey{f.FollowerID, f.FollowedID}
	if _, exists := s.followPairs[key]; exists {
		return models.NewConflictError(fmt.Sprintf("follow %q: %q already follows %q", f.ID, f.FollowerID, f.FollowedID))
	}

	f.Seq = int64(len(s.followOrder) + 1)
	s.follows[f.ID] = f
	s.followOrder = append(s.followOrder, f.ID)
	s.followsByFollower[f.FollowerID] = append(s.followsByFollower[f.FollowerID], f.ID)
	s.followsByFollowed[f.FollowedID] = append(s.followsByFollowed[f.FollowedID], f.ID)
	s.followPairs[key] = f.ID
	return nil
}
