// Package event defines the payloads pushed over live connections.
package event

import (
	"time"

	"chat-duo/domain"

	"github.com/google/uuid"
)

// Kind names a push event type. NewMessage is the only kind emitted to
// clients; delivery is a transient signal, never a stored state.
type Kind string

const NewMessage Kind = "newMessage"

// Envelope is the wire shape written to a live connection.
type Envelope struct {
	Kind    Kind        `json:"type"`
	Message MessageBody `json:"message"`
}

// MessageBody mirrors the persisted message record as clients consume it.
type MessageBody struct {
	ID         uuid.UUID `json:"id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Text       string    `json:"text,omitempty"`
	FileRef    string    `json:"fileRef,omitempty"`
	FileName   string    `json:"fileName,omitempty"`
	Lang       string    `json:"lang,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	Viewed     bool      `json:"viewed"`
}

// NewMessageEnvelope wraps a persisted message for push delivery.
func NewMessageEnvelope(m domain.Message) Envelope {
	return Envelope{
		Kind: NewMessage,
		Message: MessageBody{
			ID:         m.ID,
			SenderID:   m.SenderID,
			ReceiverID: m.ReceiverID,
			Text:       m.Body.Text,
			FileRef:    m.Body.FileRef,
			FileName:   m.Body.FileName,
			Lang:       m.Lang,
			CreatedAt:  m.CreatedAt,
			Viewed:     m.Viewed,
		},
	}
}
