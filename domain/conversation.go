package domain

import (
	"strings"

	"github.com/google/uuid"
)

// Conversation is the durable thread between exactly two distinct users.
// The participant pair is unordered: {A,B} and {B,A} are the same thread.
// MessageIDs is append-only and chronological.
type Conversation struct {
	ID           uuid.UUID
	Participants [2]string
	MessageIDs   []uuid.UUID
}

// PairKey derives the canonical storage key for an unordered participant
// pair. Both orderings of the same two ids yield the same key, which is what
// makes the insert-if-absent upsert race-proof.
func PairKey(userA, userB string) string {
	if strings.Compare(userA, userB) > 0 {
		userA, userB = userB, userA
	}
	return userA + "|" + userB
}

// NewConversation builds an empty thread for the given pair, participants
// stored in canonical order.
func NewConversation(userA, userB string) Conversation {
	if strings.Compare(userA, userB) > 0 {
		userA, userB = userB, userA
	}
	return Conversation{
		ID:           uuid.New(),
		Participants: [2]string{userA, userB},
	}
}

// Has reports whether the given user is one of the two participants.
func (c Conversation) Has(userID string) bool {
	return c.Participants[0] == userID || c.Participants[1] == userID
}
