package session

import "time"

// Session is the credential record of the signed-in user.
//
// The zero value is an empty, signed-out session.
type Session struct {
	AccessToken  string
	RefreshToken string
	UserID       string
	Username     string
	LoggedIn     bool
	UpdatedAt    time.Time
}

// Active reports whether the session represents a signed-in user.
func (s Session) Active() bool {
	return s.LoggedIn || s.AccessToken != ""
}

// Empty reports whether s carries no credential material.
func (s Session) Empty() bool {
	return s.AccessToken == "" && s.RefreshToken == "" && s.UserID == "" && !s.LoggedIn
}
