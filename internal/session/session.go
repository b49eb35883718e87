package session

import "strings"

type Session struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	PhotoURL string `json:"photo_url"`
}

// SignedIn reports whether an identity is present; the empty email is the
// only signed-out marker.
func (s Session) SignedIn() bool {
	return strings.TrimSpace(s.Email) != ""
}
