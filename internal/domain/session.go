package domain

import "time"

// Session is server-held proof of authentication, bound to requests by an opaque ID.
//
// A session must never outlive its account: if accounts become deletable, deleting
// an account has to delete its sessions in the same transaction.
type Session struct {
	ID        string
	Username  string
	CreatedAt int64
	ExpiresAt int64
}

// Expired reports whether the session is no longer valid at the given time.
func (s Session) Expired(now time.Time) bool {
	return now.Unix() >= s.ExpiresAt
}
