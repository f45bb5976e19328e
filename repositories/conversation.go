//go:generate go run go.uber.org/mock/mockgen -source=conversation.go -destination=../mocks/mock_conversation_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	goerrors "errors"
	"fmt"
	"log/slog"

	"chat-duo/domain"
	"chat-duo/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IConversationRepository interface {
	FindOrCreate(userA, userB string) (domain.Conversation, error)
	AppendMessage(conversationID, messageID uuid.UUID) error
	GetByPair(userA, userB string) (domain.Conversation, bool, error)
	ListMessages(conversationID uuid.UUID) ([]uuid.UUID, error)
}

type ConversationRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewConversationRepository(db *badger.DB, log *slog.Logger) ConversationRepository {
	return ConversationRepository{db: db, log: log}
}

// Keys:
//
//	conv:{pairKey}  -> conversation record (pairKey is the canonical sorted pair)
//	cvid:{uuid}     -> pairKey (id -> pair index, written once at creation)
func pairStorageKey(pairKey string) []byte { return []byte("conv:" + pairKey) }
func idStorageKey(id uuid.UUID) []byte    { return []byte("cvid:" + id.String()) }

// FindOrCreate resolves the unique conversation for an unordered user pair,
// creating it when absent. The upsert is an insert-if-absent against the
// canonical pair key inside one Badger transaction: when two first-contact
// sends race, the losing transaction fails commit with ErrConflict and the
// retry observes the winner's record. The race resolves internally and never
// surfaces to the caller.
func (r ConversationRepository) FindOrCreate(userA, userB string) (domain.Conversation, error) {
	if userA == "" || userB == "" {
		return domain.Conversation{}, fmt.Errorf("%w: empty participant id", errors.ErrValidation)
	}
	if userA == userB {
		return domain.Conversation{}, fmt.Errorf("%w: conversation requires two distinct users", errors.ErrValidation)
	}

	pairKey := domain.PairKey(userA, userB)
	for {
		var conv domain.Conversation
		err := r.db.Update(func(txn *badger.Txn) error {
			item, err := txn.Get(pairStorageKey(pairKey))
			if err == nil {
				return item.Value(func(val []byte) error {
					return json.Unmarshal(val, &conv)
				})
			}
			if !goerrors.Is(err, badger.ErrKeyNotFound) {
				return err
			}

			conv = domain.NewConversation(userA, userB)
			data, err := json.Marshal(conv)
			if err != nil {
				return err
			}
			if err := txn.Set(pairStorageKey(pairKey), data); err != nil {
				return err
			}
			return txn.Set(idStorageKey(conv.ID), []byte(pairKey))
		})
		if goerrors.Is(err, badger.ErrConflict) {
			// Simultaneous first contact: the other side won the insert.
			r.log.Debug("Conversation upsert race resolved, retrying lookup", "pair", pairKey)
			continue
		}
		if err != nil {
			return domain.Conversation{}, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
		}
		return conv, nil
	}
}

// AppendMessage adds a message id to the end of the conversation's ordered
// sequence. Conflicting appends to the same conversation are serialized by
// the transaction retry, so sequence order equals commit order. Duplicate
// ids are rejected.
func (r ConversationRepository) AppendMessage(conversationID, messageID uuid.UUID) error {
	for {
		err := r.db.Update(func(txn *badger.Txn) error {
			pairKey, err := r.resolvePair(txn, conversationID)
			if err != nil {
				return err
			}
			item, err := txn.Get(pairStorageKey(pairKey))
			if err != nil {
				if goerrors.Is(err, badger.ErrKeyNotFound) {
					return fmt.Errorf("%w: conversation %s", errors.ErrNotFound, conversationID)
				}
				return err
			}
			var conv domain.Conversation
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &conv)
			}); err != nil {
				return err
			}
			for _, id := range conv.MessageIDs {
				if id == messageID {
					return fmt.Errorf("%w: message %s already appended", errors.ErrValidation, messageID)
				}
			}
			conv.MessageIDs = append(conv.MessageIDs, messageID)
			data, err := json.Marshal(conv)
			if err != nil {
				return err
			}
			return txn.Set(pairStorageKey(pairKey), data)
		})
		if goerrors.Is(err, badger.ErrConflict) {
			r.log.Debug("Concurrent append, retrying", "conversation", conversationID)
			continue
		}
		if err != nil {
			if goerrors.Is(err, errors.ErrNotFound) || goerrors.Is(err, errors.ErrValidation) {
				return err
			}
			return fmt.Errorf("%w: %v", errors.ErrPersistence, err)
		}
		return nil
	}
}

// GetByPair is a read-only projection. A missing conversation is not an
// error: found=false with a zero record.
func (r ConversationRepository) GetByPair(userA, userB string) (domain.Conversation, bool, error) {
	var conv domain.Conversation
	found := false
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(pairStorageKey(domain.PairKey(userA, userB)))
		if err != nil {
			if goerrors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &conv)
		})
	})
	if err != nil {
		return domain.Conversation{}, false, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	return conv, found, nil
}

// ListMessages returns the ordered message-id sequence. The sequence is
// empty, not an error, for an unknown conversation.
func (r ConversationRepository) ListMessages(conversationID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.View(func(txn *badger.Txn) error {
		pairKey, err := r.resolvePair(txn, conversationID)
		if err != nil {
			if goerrors.Is(err, errors.ErrNotFound) {
				return nil
			}
			return err
		}
		item, err := txn.Get(pairStorageKey(pairKey))
		if err != nil {
			if goerrors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		var conv domain.Conversation
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &conv)
		}); err != nil {
			return err
		}
		ids = conv.MessageIDs
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	return ids, nil
}

func (r ConversationRepository) resolvePair(txn *badger.Txn, conversationID uuid.UUID) (string, error) {
	item, err := txn.Get(idStorageKey(conversationID))
	if err != nil {
		if goerrors.Is(err, badger.ErrKeyNotFound) {
			return "", fmt.Errorf("%w: conversation %s", errors.ErrNotFound, conversationID)
		}
		return "", err
	}
	var pairKey string
	err = item.Value(func(val []byte) error {
		pairKey = string(val)
		return nil
	})
	return pairKey, err
}
