// Package models contains data structures for the application's domain models.
package models

// User is a person or business account that hosts, joins and follows.
type User struct {
	ID                string `gorm:"primaryKey;size:64" json:"id" yaml:"id"`
	Username          string `gorm:"size:64;not null;uniqueIndex" json:"username" yaml:"username"`
	Name              string `gorm:"size:128;not null" json:"name" yaml:"name"`
	Bio               string `gorm:"type:text" json:"bio" yaml:"bio"`
	ProfilePictureURL string `gorm:"type:text" json:"profile_picture_url,omitempty" yaml:"profile_picture_url,omitempty"`
	IsBusinessAccount bool   `gorm:"not null;default:false" json:"is_business_account" yaml:"is_business_account"`

	// Seq is the position of the record in its relation's insertion order.
	Seq int64 `gorm:"index;not null" json:"-" yaml:"-"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}

// FollowCounts holds raw edge counts in each direction.
type FollowCounts struct {
	Followers int `json:"followers"`
	Following int `json:"following"`
}

// Profile is everything a profile screen shows for one user, as seen by a viewer.
type Profile struct {
	User        User         `json:"user"`
	Counts      FollowCounts `json:"counts"`
	Moments     UserMoments  `json:"moments"`
	IsFollowing bool         `json:"is_following"`
	IsSelf      bool         `json:"is_self"`
}
