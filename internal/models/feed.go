package models

import "time"

// FeedItemType distinguishes the activity a feed item records.
type FeedItemType string

const (
	// FeedItemCreated is emitted once per moment, attributed to its host.
	FeedItemCreated FeedItemType = "created"
	// FeedItemRSVPd is emitted once per RSVP, attributed to the responding user.
	FeedItemRSVPd FeedItemType = "rsvpd"
)

// FeedItem is one entry of the activity feed.
type FeedItem struct {
	ID          string       `json:"id"`
	Type        FeedItemType `json:"type"`
	MomentID    string       `json:"moment_id"`
	MomentTitle string       `json:"moment_title"`
	MomentTime  time.Time    `json:"moment_time"`
	CreatedAt   time.Time    `json:"created_at"`
	UserID      string       `json:"user_id"`
	RSVPStatus  RSVPStatus   `json:"rsvp_status,omitempty"`
}

// CreatedFeedItem derives the "created" entry for a moment.
func CreatedFeedItem(m *Moment) FeedItem {
	return FeedItem{
		ID:          "created:" + m.ID,
		Type:        FeedItemCreated,
		MomentID:    m.ID,
		MomentTitle: m.Title,
		MomentTime:  m.Date,
		CreatedAt:   m.CreatedAt,
		UserID:      m.HostID,
	}
}

// RSVPFeedItem derives the "rsvpd" entry for an RSVP. m may be nil when the
// moment cannot be resolved; the item then carries only the moment id.
func RSVPFeedItem(r *RSVP, m *Moment) FeedItem {
	item := FeedItem{
		ID:         "rsvpd:" + r.ID,
		Type:       FeedItemRSVPd,
		MomentID:   r.MomentID,
		CreatedAt:  r.CreatedAt,
		UserID:     r.UserID,
		RSVPStatus: r.Status,
	}
	if m != nil {
		item.MomentTitle = m.Title
		item.MomentTime = m.Date
	}
	return item
}

// HostCard is the compact host summary shown on a feed card.
type HostCard struct {
	ID                string `json:"id"`
	Username          string `json:"username"`
	Name              string `json:"name"`
	Verified          bool   `json:"verified"`
	ProfilePictureURL string `json:"profile_picture_url,omitempty"`
}

// FeedCardMetadata carries timing and RSVP tallies for a card.
type FeedCardMetadata struct {
	CreatedAt time.Time `json:"created_at"`
	TimeAgo   string    `json:"time_ago"`
	RSVPCounts
}

// FeedCard is an upcoming moment prepared for the main feed, personalised for
// the viewing session.
type FeedCard struct {
	ID            string           `json:"id"`
	Title         string           `json:"title"`
	Description   string           `json:"description,omitempty"`
	Date          time.Time        `json:"date"`
	Location      string           `json:"location"`
	MaxCapacity   int              `json:"max_capacity"`
	Host          HostCard         `json:"host"`
	Metadata      FeedCardMetadata `json:"metadata"`
	IsHost        bool             `json:"is_host"`
	ViewerRSVP    RSVPStatus       `json:"viewer_rsvp,omitempty"`
	FollowingHost bool             `json:"following_host"`
}
