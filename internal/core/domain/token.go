package domain

import "time"

// AuthToken is a self-certifying proof of identity handed to clients.
// Token is opaque to callers; the remaining fields describe what it encodes.
type AuthToken struct {
	Token     string     `json:"token"`
	Subject   string     `json:"-"`
	IssuedAt  time.Time  `json:"-"`
	ExpiresAt *time.Time `json:"-"`
}
