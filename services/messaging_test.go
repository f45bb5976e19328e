package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"chat-duo/domain"
	"chat-duo/errors"
	"chat-duo/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type serviceFixture struct {
	conversations *mocks.MockIConversationRepository
	messages      *mocks.MockIMessageRepository
	users         *mocks.MockIUserRepository
	pusher        *mocks.MockIPusher
	index         *mocks.MockIMessageIndex
	service       *MessagingService
}

func newServiceFixture(t *testing.T) serviceFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := serviceFixture{
		conversations: mocks.NewMockIConversationRepository(ctrl),
		messages:      mocks.NewMockIMessageRepository(ctrl),
		users:         mocks.NewMockIUserRepository(ctrl),
		pusher:        mocks.NewMockIPusher(ctrl),
		index:         mocks.NewMockIMessageIndex(ctrl),
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.service = NewMessagingService(f.conversations, f.messages, f.users, f.pusher, f.index, nil, log)
	return f
}

func storedMessage(senderID, receiverID string, payload domain.Payload) domain.Message {
	return domain.Message{
		ID:         uuid.New(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Body:       payload,
		Lang:       "en",
		CreatedAt:  time.Now().UTC(),
	}
}

func TestMessagingService_SendMessage(t *testing.T) {
	req := require.New(t)
	f := newServiceFixture(t)
	ctx := context.Background()

	payload := domain.Payload{Text: "hello bob"}
	conversation := domain.NewConversation("alice", "bob")
	message := storedMessage("alice", "bob", payload)

	f.users.EXPECT().Exists("alice").Return(true, nil)
	f.users.EXPECT().Exists("bob").Return(true, nil)
	f.conversations.EXPECT().FindOrCreate("alice", "bob").Return(conversation, nil)
	f.messages.EXPECT().Create("alice", "bob", gomock.Any(), gomock.Any()).Return(message, nil)
	f.conversations.EXPECT().AppendMessage(conversation.ID, message.ID).Return(nil)
	f.users.EXPECT().AddContactPair("alice", "bob").Return(nil)
	f.index.EXPECT().Index(message).Return(nil)
	f.pusher.EXPECT().PushNewMessage("bob", message)

	sent, err := f.service.SendMessage(ctx, "alice", "bob", payload)
	req.NoError(err)
	req.Equal(message, sent)
}

func TestMessagingService_SendMessage_Validation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		description string
		senderID    string
		receiverID  string
		setup       func(f serviceFixture)
	}{
		{
			"Should fail with empty sender",
			"", "bob",
			func(f serviceFixture) {},
		},
		{
			"Should fail when messaging yourself",
			"alice", "alice",
			func(f serviceFixture) {},
		},
		{
			"Should fail when receiver is unknown",
			"alice", "ghost",
			func(f serviceFixture) {
				f.users.EXPECT().Exists("alice").Return(true, nil)
				f.users.EXPECT().Exists("ghost").Return(false, nil)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			req := require.New(t)
			f := newServiceFixture(t)
			tt.setup(f)
			_, err := f.service.SendMessage(ctx, tt.senderID, tt.receiverID, domain.Payload{Text: "hi"})
			req.ErrorIs(err, errors.ErrValidation)
		})
	}
}

// Durability never depends on the push path: indexing failures only log and
// the pusher is called regardless of presence.
func TestMessagingService_SendMessage_Index_Failure_Does_Not_Block(t *testing.T) {
	req := require.New(t)
	f := newServiceFixture(t)
	ctx := context.Background()

	payload := domain.Payload{FileRef: "blob-42", FileName: "photo.jpg"}
	conversation := domain.NewConversation("alice", "bob")
	message := storedMessage("alice", "bob", payload)

	f.users.EXPECT().Exists("alice").Return(true, nil)
	f.users.EXPECT().Exists("bob").Return(true, nil)
	f.conversations.EXPECT().FindOrCreate("alice", "bob").Return(conversation, nil)
	f.messages.EXPECT().Create("alice", "bob", payload, "").Return(message, nil)
	f.conversations.EXPECT().AppendMessage(conversation.ID, message.ID).Return(nil)
	f.users.EXPECT().AddContactPair("alice", "bob").Return(nil)
	f.index.EXPECT().Index(message).Return(errors.ErrPersistence)
	f.pusher.EXPECT().PushNewMessage("bob", message)

	sent, err := f.service.SendMessage(ctx, "alice", "bob", payload)
	req.NoError(err)
	req.Equal(message, sent)
}

func TestMessagingService_FetchThread(t *testing.T) {
	req := require.New(t)
	f := newServiceFixture(t)

	conversation := domain.NewConversation("alice", "bob")
	first := storedMessage("alice", "bob", domain.Payload{Text: "hello"})
	second := storedMessage("bob", "alice", domain.Payload{Text: "hi"})
	conversation.MessageIDs = []uuid.UUID{first.ID, second.ID}

	f.conversations.EXPECT().GetByPair("alice", "bob").Return(conversation, true, nil)
	f.messages.EXPECT().GetBatch(conversation.MessageIDs).Return([]domain.Message{first, second}, nil)

	thread, err := f.service.FetchThread("alice", "bob")
	req.NoError(err)
	req.Equal([]domain.Message{first, second}, thread)
}

func TestMessagingService_FetchThread_No_Conversation(t *testing.T) {
	req := require.New(t)
	f := newServiceFixture(t)

	f.conversations.EXPECT().GetByPair("alice", "bob").Return(domain.Conversation{}, false, nil)

	thread, err := f.service.FetchThread("alice", "bob")
	req.NoError(err)
	req.Empty(thread)
	req.NotNil(thread)
}

func TestMessagingService_MarkViewed(t *testing.T) {
	req := require.New(t)
	f := newServiceFixture(t)

	message := storedMessage("alice", "bob", domain.Payload{Text: "hello"})
	message.Viewed = true
	f.messages.EXPECT().MarkViewed(message.ID).Return(message, nil)

	viewed, err := f.service.MarkViewed(message.ID)
	req.NoError(err)
	req.True(viewed.Viewed)
}

func TestMessagingService_SearchMessages_Skips_Dangling_Ids(t *testing.T) {
	req := require.New(t)
	f := newServiceFixture(t)
	ctx := context.Background()

	kept := storedMessage("alice", "bob", domain.Payload{Text: "hello"})
	dangling := uuid.New()

	f.index.EXPECT().Search(ctx, "alice", "hello", 10).Return([]uuid.UUID{kept.ID, dangling}, nil)
	f.messages.EXPECT().Get(kept.ID).Return(kept, nil)
	f.messages.EXPECT().Get(dangling).Return(domain.Message{}, errors.ErrNotFound)

	results, err := f.service.SearchMessages(ctx, "alice", "hello", 10)
	req.NoError(err)
	req.Equal([]domain.Message{kept}, results)
}
