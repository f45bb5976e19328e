//go:generate go run go.uber.org/mock/mockgen -source=index.go -destination=../mocks/mock_message_index.go -package=mocks
// Package search maintains a full-text index over stored message text.
package search

import (
	"context"
	"fmt"
	"log/slog"

	"chat-duo/domain"

	"github.com/blugelabs/bluge"
	"github.com/google/uuid"
)

type IMessageIndex interface {
	Index(message domain.Message) error
	Search(ctx context.Context, callerID, terms string, limit int) ([]uuid.UUID, error)
}

// MessageIndex indexes text messages in Bluge. File messages are indexed by
// file name. Both participants are stored as keyword terms so a search can
// be scoped to threads the caller takes part in.
type MessageIndex struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewMessageIndex(writer *bluge.Writer, log *slog.Logger) MessageIndex {
	return MessageIndex{writer: writer, log: log}
}

func (x MessageIndex) Index(message domain.Message) error {
	content := message.Body.Text
	if content == "" {
		content = message.Body.FileName
	}
	doc := bluge.NewDocument(message.ID.String()).
		AddField(bluge.NewTextField("content", content)).
		AddField(bluge.NewKeywordField("participant", message.SenderID)).
		AddField(bluge.NewKeywordField("participant", message.ReceiverID)).
		AddField(bluge.NewDateTimeField("created_at", message.CreatedAt))
	if err := x.writer.Update(doc.ID(), doc); err != nil {
		return fmt.Errorf("indexing message %s: %w", message.ID, err)
	}
	return nil
}

// Search returns the ids of the caller's messages matching the terms, best
// score first.
func (x MessageIndex) Search(ctx context.Context, callerID, terms string, limit int) ([]uuid.UUID, error) {
	reader, err := x.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = reader.Close()
	}()

	match := bluge.NewMatchQuery(terms)
	match.SetField("content")
	scope := bluge.NewTermQuery(callerID)
	scope.SetField("participant")
	query := bluge.NewBooleanQuery().AddMust(match).AddMust(scope)

	iterator, err := reader.Search(ctx, bluge.NewTopNSearch(limit, query))
	if err != nil {
		return nil, err
	}

	var ids []uuid.UUID
	for {
		next, err := iterator.Next()
		if err != nil {
			return nil, err
		}
		if next == nil {
			break
		}
		err = next.VisitStoredFields(func(field string, value []byte) bool {
			if field != "_id" {
				return true
			}
			id, err := uuid.Parse(string(value))
			if err != nil {
				x.log.Warn("Skipping non-uuid index entry", "value", string(value))
				return false
			}
			ids = append(ids, id)
			return false
		})
		if err != nil {
			return nil, err
		}
	}
	return ids, nil
}
