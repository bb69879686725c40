package domain

import "time"

// Session is the current signed-in user, persisted under its own key.
// The embedded user is always sanitized; the plaintext password never
// leaves the store record.
type Session struct {
	ID        string    `json:"id"`
	User      User      `json:"usuario"`
	CreatedAt time.Time `json:"createdAt"`
}
