// Package domain contains core concepts of the direct-messaging system.
// This file defines User entities as seen by the identity store.
// No runtime, network, or UI logic should be added here.
package domain

import "time"

// User is the identity-store record. Contacts is the set of user ids
// this user has exchanged at least one message with; membership is
// symmetric and idempotent, insertion order carries no meaning.
type User struct {
	ID           string
	Handle       string
	PasswordHash string
	Contacts     []string
	CreatedAt    time.Time
}

// Summary is the outward-facing projection of a User.
// Password-equivalent secrets never leave the identity store.
type Summary struct {
	ID        string
	Handle    string
	CreatedAt time.Time
}

// Summary strips the secret fields from the record.
func (u User) Summary() Summary {
	return Summary{ID: u.ID, Handle: u.Handle, CreatedAt: u.CreatedAt}
}
