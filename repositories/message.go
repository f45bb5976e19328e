//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	goerrors "errors"
	"fmt"
	"log/slog"
	"time"

	"chat-duo/domain"
	"chat-duo/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IMessageRepository interface {
	Create(senderID, receiverID string, payload domain.Payload, lang string) (domain.Message, error)
	Get(messageID uuid.UUID) (domain.Message, error)
	GetBatch(messageIDs []uuid.UUID) ([]domain.Message, error)
	MarkViewed(messageID uuid.UUID) (domain.Message, error)
}

type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) MessageRepository {
	return MessageRepository{db: db, log: log}
}

// record is the stored shape of a message. Kept separate from the domain
// struct so the storage encoding can evolve without touching callers.
type record struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Text       string    `json:"text,omitempty"`
	FileRef    string    `json:"file_ref,omitempty"`
	FileName   string    `json:"file_name,omitempty"`
	Lang       string    `json:"lang,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	Viewed     bool      `json:"viewed"`
}

func messageStorageKey(id uuid.UUID) []byte { return []byte("mesg:" + id.String()) }

// Create validates the payload shape, assigns id and timestamp and persists
// the record. Existence of the two user ids is the orchestrator's concern;
// this store only enforces that they are present and distinct.
func (r MessageRepository) Create(senderID, receiverID string, payload domain.Payload, lang string) (domain.Message, error) {
	if senderID == "" || receiverID == "" {
		return domain.Message{}, fmt.Errorf("%w: empty sender or receiver id", errors.ErrValidation)
	}
	if senderID == receiverID {
		return domain.Message{}, fmt.Errorf("%w: sender and receiver must differ", errors.ErrValidation)
	}
	if _, ok := payload.Kind(); !ok {
		return domain.Message{}, fmt.Errorf("%w: payload must be exactly one of text or file reference", errors.ErrValidation)
	}

	message := domain.Message{
		ID:         uuid.New(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Body:       payload,
		Lang:       lang,
		CreatedAt:  time.Now().UTC(),
		Viewed:     false,
	}
	data, err := json.Marshal(fromMessage(message))
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageStorageKey(message.ID), data)
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	return message, nil
}

func (r MessageRepository) Get(messageID uuid.UUID) (domain.Message, error) {
	var message domain.Message
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		message, err = readMessage(txn, messageID)
		return err
	})
	if err != nil {
		if goerrors.Is(err, errors.ErrNotFound) {
			return domain.Message{}, err
		}
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	return message, nil
}

// GetBatch resolves ids to full records preserving the input order, which is
// the conversation's append order. A dangling id fails the whole read: the
// sequence and the records are expected to agree.
func (r MessageRepository) GetBatch(messageIDs []uuid.UUID) ([]domain.Message, error) {
	messages := make([]domain.Message, 0, len(messageIDs))
	err := r.db.View(func(txn *badger.Txn) error {
		for _, id := range messageIDs {
			message, err := readMessage(txn, id)
			if err != nil {
				return err
			}
			messages = append(messages, message)
		}
		return nil
	})
	if err != nil {
		if goerrors.Is(err, errors.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	return messages, nil
}

// MarkViewed flips the viewed flag to true. The call is idempotent: a second
// call returns the unchanged record. There is no way back to unviewed.
func (r MessageRepository) MarkViewed(messageID uuid.UUID) (domain.Message, error) {
	for {
		var message domain.Message
		err := r.db.Update(func(txn *badger.Txn) error {
			var err error
			message, err = readMessage(txn, messageID)
			if err != nil {
				return err
			}
			if message.Viewed {
				return nil
			}
			message.Viewed = true
			data, err := json.Marshal(fromMessage(message))
			if err != nil {
				return err
			}
			return txn.Set(messageStorageKey(messageID), data)
		})
		if goerrors.Is(err, badger.ErrConflict) {
			// A concurrent duplicate call committed first; retry observes it.
			r.log.Debug("Concurrent viewed update, retrying", "message", messageID)
			continue
		}
		if err != nil {
			if goerrors.Is(err, errors.ErrNotFound) {
				return domain.Message{}, err
			}
			return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
		}
		return message, nil
	}
}

func readMessage(txn *badger.Txn, id uuid.UUID) (domain.Message, error) {
	item, err := txn.Get(messageStorageKey(id))
	if err != nil {
		if goerrors.Is(err, badger.ErrKeyNotFound) {
			return domain.Message{}, fmt.Errorf("%w: message %s", errors.ErrNotFound, id)
		}
		return domain.Message{}, err
	}
	var rec record
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	}); err != nil {
		return domain.Message{}, err
	}
	return toMessage(rec)
}

func fromMessage(m domain.Message) record {
	return record{
		ID:         m.ID.String(),
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Text:       m.Body.Text,
		FileRef:    m.Body.FileRef,
		FileName:   m.Body.FileName,
		Lang:       m.Lang,
		CreatedAt:  m.CreatedAt,
		Viewed:     m.Viewed,
	}
}

func toMessage(rec record) (domain.Message, error) {
	parsedID, err := uuid.Parse(rec.ID)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:         parsedID,
		SenderID:   rec.SenderID,
		ReceiverID: rec.ReceiverID,
		Body: domain.Payload{
			Text:     rec.Text,
			FileRef:  rec.FileRef,
			FileName: rec.FileName,
		},
		Lang:      rec.Lang,
		CreatedAt: rec.CreatedAt.UTC(),
		Viewed:    rec.Viewed,
	}, nil
}
