package types

import "time"

// Session is a cache-resident record of one logged-in device.
// Sessions live in Redis under their own key with a per-user index set;
// they are never persisted to the relational store.
type Session struct {
	// SessionID is the unique identifier embedded into access tokens.
	SessionID string `json:"session_id"`

	// UserID identifies the owning user.
	UserID int `json:"user_id"`

	// DeviceInfo is the User-Agent string captured at login.
	DeviceInfo string `json:"device_info"`

	// IP is the client address captured at login.
	IP string `json:"ip"`

	// CreatedAt is when the session was established.
	CreatedAt time.Time `json:"created_at"`

	// LastActive is refreshed on each token rotation.
	LastActive time.Time `json:"last_active"`
}

// RefreshRecord is the cache entry behind an opaque refresh token.
// It is keyed by the token's public ID and stores only a hash of the
// token secret. Single use: deleted before its replacement is written.
type RefreshRecord struct {
	UserID     int       `json:"user_id"`
	SessionID  string    `json:"session_id"`
	DeviceInfo string    `json:"device_info"`
	SecretHash string    `json:"secret_hash"`
	CreatedAt  time.Time `json:"created_at"`
}
