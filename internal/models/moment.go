package models

import "time"

// MomentStatus is the lifecycle position of a moment.
type MomentStatus string

const (
	// MomentStatusUpcoming marks a moment that has not happened yet.
	MomentStatusUpcoming MomentStatus = "upcoming"
	// MomentStatusPast marks a moment that already happened.
	MomentStatusPast MomentStatus = "past"
)

// Valid reports whether s is a known status.
func (s MomentStatus) Valid() bool {
	return s == MomentStatusUpcoming || s == MomentStatusPast
}

// Moment is an event or gathering hosted by a user.
type Moment struct {
	ID          string       `gorm:"primaryKey;size:64" json:"id" yaml:"id"`
	HostID      string       `gorm:"size:64;not null;index:idx_moments_host" json:"host_id" yaml:"host_id"`
	Title       string       `gorm:"size:200;not null" json:"title" yaml:"title"`
	Description string       `gorm:"type:text" json:"description,omitempty" yaml:"description,omitempty"`
	Date        time.Time    `gorm:"not null" json:"date" yaml:"date"`
	MaxCapacity int          `gorm:"not null" json:"max_capacity" yaml:"max_capacity"`
	Location    string       `gorm:"size:200;not null" json:"location" yaml:"location"`
	Status      MomentStatus `gorm:"type:varchar(20);not null;index:idx_moments_status" json:"status" yaml:"status"`
	CreatedAt   time.Time    `gorm:"not null" json:"created_at" yaml:"created_at"`

	Seq int64 `gorm:"index;not null" json:"-" yaml:"-"`
}

// TableName specifies the table name for GORM
func (Moment) TableName() string {
	return "moments"
}

// MomentDraft is the input for creating a moment.
type MomentDraft struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Location    string    `json:"location"`
	MaxCapacity int       `json:"max_capacity"`
}

// UserMoments partitions the moments a user hosts or responded to.
type UserMoments struct {
	Hosting     []Moment `json:"hosting"`
	Hosted      []Moment `json:"hosted"`
	Going       []Moment `json:"going"`
	Went        []Moment `json:"went"`
	Considering []Moment `json:"considering"`
}

// RSVPCounts tallies a moment's RSVPs by status.
type RSVPCounts struct {
	Going      int `json:"going"`
	Interested int `json:"interested"`
	NotGoing   int `json:"not_going"`
}

// MomentDetail is a moment with its host and RSVP tallies.
type MomentDetail struct {
	Moment    Moment     `json:"moment"`
	Host      *User      `json:"host"`
	Counts    RSVPCounts `json:"counts"`
	SpotsLeft int        `json:"spots_left"`
}
