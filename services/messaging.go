package services

import (
	"context"
	goerrors "errors"
	"fmt"
	"log/slog"
	"sync"

	"chat-duo/domain"
	"chat-duo/errors"
	"chat-duo/moderation"
	"chat-duo/realtime"
	"chat-duo/repositories"
	"chat-duo/search"

	"github.com/abadojack/whatlanggo"
	"github.com/google/uuid"
)

type IMessagingService interface {
	SendMessage(ctx context.Context, senderID, receiverID string, payload domain.Payload) (domain.Message, error)
	FetchThread(userA, userB string) ([]domain.Message, error)
	MarkViewed(messageID uuid.UUID) (domain.Message, error)
	SearchMessages(ctx context.Context, callerID, terms string, limit int) ([]domain.Message, error)
}

// MessagingService composes the stores, the presence-backed notifier, the
// moderator and the search index into the send/fetch/viewed operations.
type MessagingService struct {
	conversations repositories.IConversationRepository
	messages      repositories.IMessageRepository
	users         repositories.IUserRepository
	pusher        realtime.IPusher
	index         search.IMessageIndex
	moderator     *moderation.Moderator
	log           *slog.Logger
}

func NewMessagingService(
	conversations repositories.IConversationRepository,
	messages repositories.IMessageRepository,
	users repositories.IUserRepository,
	pusher realtime.IPusher,
	index search.IMessageIndex,
	moderator *moderation.Moderator,
	log *slog.Logger,
) *MessagingService {
	return &MessagingService{
		conversations: conversations,
		messages:      messages,
		users:         users,
		pusher:        pusher,
		index:         index,
		moderator:     moderator,
		log:           log,
	}
}

// SendMessage validates both identities, resolves the unique conversation
// for the pair and appends a freshly created message to it, then records the
// contact relation and pushes a newMessage event to the recipient's live
// connection when present.
//
// The conversation upsert and the message creation have no ordering
// dependency, so they run concurrently; the append waits for both. The steps
// are not transactional across stores: a failure after the message write
// leaves it unattached rather than rolling back. Callers are expected to
// retry the whole operation on a persistence error.
func (s *MessagingService) SendMessage(ctx context.Context, senderID, receiverID string, payload domain.Payload) (domain.Message, error) {
	if err := s.checkParticipants(senderID, receiverID); err != nil {
		return domain.Message{}, err
	}

	lang := ""
	if kind, ok := payload.Kind(); ok && kind == domain.KindText {
		info := whatlanggo.Detect(payload.Text)
		lang = info.Lang.Iso6391()
		if s.moderator != nil {
			censored, found := s.moderator.Censor(payload.Text)
			if len(found) > 0 {
				s.log.Debug("Message text censored", "sender_id", senderID, "words", len(found))
			}
			payload.Text = censored
		}
	}

	var (
		wg           sync.WaitGroup
		conversation domain.Conversation
		message      domain.Message
		convErr      error
		messageErr   error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		conversation, convErr = s.conversations.FindOrCreate(senderID, receiverID)
	}()
	go func() {
		defer wg.Done()
		message, messageErr = s.messages.Create(senderID, receiverID, payload, lang)
	}()
	wg.Wait()

	if convErr != nil {
		return domain.Message{}, convErr
	}
	if messageErr != nil {
		return domain.Message{}, messageErr
	}

	if err := s.conversations.AppendMessage(conversation.ID, message.ID); err != nil {
		return domain.Message{}, err
	}
	if err := s.users.AddContactPair(senderID, receiverID); err != nil {
		return domain.Message{}, err
	}

	if s.index != nil {
		if err := s.index.Index(message); err != nil {
			// Search lags behind rather than failing the send.
			s.log.Warn("Message indexing failed", "message_id", message.ID, "error", err)
		}
	}

	s.pusher.PushNewMessage(receiverID, message)
	return message, nil
}

// FetchThread resolves the thread between two users to full records in
// append order. No conversation yet means an empty thread, not an error.
func (s *MessagingService) FetchThread(userA, userB string) ([]domain.Message, error) {
	if userA == "" || userB == "" || userA == userB {
		return nil, fmt.Errorf("%w: invalid participant pair", errors.ErrValidation)
	}
	conversation, found, err := s.conversations.GetByPair(userA, userB)
	if err != nil {
		return nil, err
	}
	if !found {
		return []domain.Message{}, nil
	}
	return s.messages.GetBatch(conversation.MessageIDs)
}

// MarkViewed delegates to the message store; the transition is idempotent.
func (s *MessagingService) MarkViewed(messageID uuid.UUID) (domain.Message, error) {
	return s.messages.MarkViewed(messageID)
}

// SearchMessages runs a full-text query scoped to the caller's threads.
// Ids the index still holds for since-deleted records are skipped.
func (s *MessagingService) SearchMessages(ctx context.Context, callerID, terms string, limit int) ([]domain.Message, error) {
	if s.index == nil {
		return []domain.Message{}, nil
	}
	ids, err := s.index.Search(ctx, callerID, terms, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	results := make([]domain.Message, 0, len(ids))
	for _, id := range ids {
		message, err := s.messages.Get(id)
		if err != nil {
			if goerrors.Is(err, errors.ErrNotFound) {
				continue
			}
			return nil, err
		}
		results = append(results, message)
	}
	return results, nil
}

func (s *MessagingService) checkParticipants(senderID, receiverID string) error {
	if senderID == "" || receiverID == "" {
		return fmt.Errorf("%w: empty sender or receiver id", errors.ErrValidation)
	}
	if senderID == receiverID {
		return fmt.Errorf("%w: cannot message yourself", errors.ErrValidation)
	}
	for _, id := range []string{senderID, receiverID} {
		exists, err := s.users.Exists(id)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: unknown user %s", errors.ErrValidation, id)
		}
	}
	return nil
}
