package models

// Session identifies the acting user for one request. The zero value is an
// anonymous viewer.
type Session struct {
	UserID string
}

// Anonymous returns a session with no acting user.
func Anonymous() Session {
	return Session{}
}

// IsAuthenticated reports whether the session names a user.
func (s Session) IsAuthenticated() bool {
	return s.UserID != ""
}
