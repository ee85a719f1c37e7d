package models

import "time"

// RSVPStatus is a user's answer to a moment.
type RSVPStatus string

const (
	RSVPStatusGoing    RSVPStatus = "going"
	RSVPStatusMaybe    RSVPStatus = "maybe"
	RSVPStatusNotGoing RSVPStatus = "not_going"
)

// Valid reports whether s is a known status.
func (s RSVPStatus) Valid() bool {
	switch s {
	case RSVPStatusGoing, RSVPStatusMaybe, RSVPStatusNotGoing:
		return true
	}
	return false
}

// RSVP is a user's response to a moment. At most one exists per (user, moment).
type RSVP struct {
	ID        string     `gorm:"primaryKey;size:64" json:"id" yaml:"id"`
	UserID    string     `gorm:"size:64;not null;uniqueIndex:idx_rsvps_user_moment" json:"user_id" yaml:"user_id"`
	MomentID  string     `gorm:"size:64;not null;uniqueIndex:idx_rsvps_user_moment;index:idx_rsvps_moment" json:"moment_id" yaml:"moment_id"`
	Status    RSVPStatus `gorm:"type:varchar(20);not null" json:"status" yaml:"status"`
	CreatedAt time.Time  `gorm:"not null" json:"created_at" yaml:"created_at"`

	Seq int64 `gorm:"index;not null" json:"-" yaml:"-"`
}

// TableName specifies the table name for GORM
func (RSVP) TableName() string {
	return "rsvps"
}

// RSVPWithUser pairs an RSVP with its resolved user; User is nil when the
// user no longer exists.
type RSVPWithUser struct {
	RSVP
	User *User `json:"user"`
}
