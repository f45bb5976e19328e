//go:generate go run go.uber.org/mock/mockgen -source=notifier.go -destination=../mocks/mock_pusher.go -package=mocks
package realtime

import (
	"encoding/json"
	"log/slog"

	"chat-duo/domain"
	"chat-duo/domain/event"
)

// IPusher is what the messaging service sees of the delivery layer.
type IPusher interface {
	PushNewMessage(targetUserID string, message domain.Message)
}

// Notifier routes push events to the target's live connection, if any.
// Delivery is best-effort: no queueing, no retry, no ack. A target
// without presence, or a connection that closed a moment earlier, is a
// silent drop; durability of the message is never coupled to this path.
type Notifier struct {
	registry *Registry
	log      *slog.Logger
}

func NewNotifier(registry *Registry, log *slog.Logger) Notifier {
	return Notifier{registry: registry, log: log}
}

func (n Notifier) PushNewMessage(targetUserID string, message domain.Message) {
	session, ok := n.registry.Lookup(targetUserID)
	if !ok {
		n.log.Debug("No presence for target, push skipped", "user_id", targetUserID)
		return
	}
	payload, err := json.Marshal(event.NewMessageEnvelope(message))
	if err != nil {
		n.log.Error("Failed to encode push event", "error", err)
		return
	}
	if err := session.Send(payload); err != nil {
		// The socket closed between lookup and write. Tolerated, not an error.
		n.log.Debug("Push dropped, connection gone", "user_id", targetUserID, "error", err)
	}
}
