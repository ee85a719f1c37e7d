package models

import (
	"fmt"
	"strings"
	"time"
)

// SearchFilter narrows which relations a search looks at.
type SearchFilter string

const (
	SearchAll     SearchFilter = "all"
	SearchMoments SearchFilter = "moments"
	SearchUsers   SearchFilter = "users"
)

// ParseSearchFilter accepts a filter name, treating an empty value as "all".
func ParseSearchFilter(s string) (SearchFilter, error) {
	switch f := SearchFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return SearchAll, nil
	case SearchAll, SearchMoments, SearchUsers:
		return f, nil
	default:
		return "", NewValidationError(fmt.Sprintf("unknown search filter %q", s))
	}
}

// SearchResultType tells moment hits from user hits.
type SearchResultType string

const (
	SearchResultMoment SearchResultType = "created"
	SearchResultUser   SearchResultType = "user"
)

// SearchResult is a lightweight record for one search hit. Moment hits carry
// the moment fields and the host id; user hits carry the user fields.
type SearchResult struct {
	Type              SearchResultType `json:"type"`
	MomentID          string           `json:"moment_id,omitempty"`
	MomentTitle       string           `json:"moment_title,omitempty"`
	MomentTime        *time.Time       `json:"moment_time,omitempty"`
	UserID            string           `json:"user_id"`
	Name              string           `json:"name,omitempty"`
	Username          string           `json:"username,omitempty"`
	ProfilePictureURL string           `json:"profile_picture_url,omitempty"`
}
