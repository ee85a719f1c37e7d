package models

import "time"

// Follow is a directed edge from FollowerID to FollowedID.
type Follow struct {
	ID         string    `gorm:"primaryKey;size:64" json:"id" yaml:"id"`
	FollowerID string    `gorm:"size:64;not null;uniqueIndex:idx_follows_pair" json:"follower_id" yaml:"follower_id"`
	FollowedID string    `gorm:"size:64;not null;uniqueIndex:idx_follows_pair;index:idx_follows_followed" json:"followed_id" yaml:"followed_id"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at" yaml:"created_at"`

	Seq int64 `gorm:"index;not null" json:"-" yaml:"-"`
}

// TableName specifies the table name for GORM
func (Follow) TableName() string {
	return "follows"
}
