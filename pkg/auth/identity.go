package auth

import "strings"

// SocialIdentity is the normalized profile returned by an OAuth exchange.
// It is produced once per callback and never persisted as is.
type SocialIdentity struct {
	ExternalID    string
	Email         string
	Name          string
	Nickname      string
	AvatarURL     string
	EmailVerified bool
}

// DisplayName returns Name, falling back to Nickname and then to the local
// part of Email.
func (i SocialIdentity) DisplayName() string {
	if n := strings.TrimSpace(i.Name); n != "" {
		return n
	}
	if n := strings.TrimSpace(i.Nickname); n != "" {
		return n
	}
	local, _, _ := strings.Cut(i.Email, "@")
	return strings.TrimSpace(local)
}
