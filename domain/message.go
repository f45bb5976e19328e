// Package domain contains core concepts of the direct-messaging system.
// This file defines Message records and their payload rules.
// Messages are immutable once created, except for the one-way viewed flag.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message is a single direct message between two distinct users.
// Viewed only ever transitions false -> true.
type Message struct {
	ID         uuid.UUID
	SenderID   string
	ReceiverID string
	Body       Payload
	Lang       string
	CreatedAt  time.Time
	Viewed     bool
}

// PayloadKind discriminates the two allowed message bodies.
type PayloadKind string

const (
	KindText PayloadKind = "text"
	KindFile PayloadKind = "file"
)

// Payload carries either text content or a file reference, never both.
type Payload struct {
	Text     string
	FileRef  string
	FileName string
}

// Kind reports which body the payload carries.
// An empty or double-filled payload has no kind.
func (p Payload) Kind() (PayloadKind, bool) {
	hasText := p.Text != ""
	hasFile := p.FileRef != "" || p.FileName != ""
	switch {
	case hasText && !hasFile:
		return KindText, true
	case hasFile && !hasText && p.FileRef != "" && p.FileName != "":
		return KindFile, true
	default:
		return "", false
	}
}
