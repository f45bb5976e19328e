package httpapi

import (
	"net/http"
	"strconv"

	"chat-duo/auth"
	"chat-duo/domain"
	"chat-duo/domain/event"
	"chat-duo/errors"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// sendMessageRequest accepts exactly one payload kind: a text body, or a
// file reference with its display name. The declared MIME type is optional
// and only checked for being a registered type.
type sendMessageRequest struct {
	Text     string `json:"text" validate:"excluded_with=FileRef FileName,required_without=FileRef"`
	FileRef  string `json:"fileRef" validate:"excluded_with=Text,required_with=FileName"`
	FileName string `json:"fileName" validate:"excluded_with=Text,required_with=FileRef"`
	MimeType string `json:"mimeType" validate:"omitempty,excluded_with=Text"`
}

// GetThread returns the ordered thread between the caller and the peer.
// An unknown pair yields an empty array, not a 404.
func (s *Server) GetThread(c *gin.Context) {
	thread, err := s.messaging.FetchThread(auth.CallerID(c), c.Param("peerId"))
	if err != nil {
		c.JSON(errors.MapToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toMessageResponses(thread))
}

// SendMessage creates and delivers a message to the peer. Push delivery is
// best-effort and never affects the response.
func (s *Server) SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or malformed body"})
		return
	}
	if err := s.validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.MimeType != "" && mimetype.Lookup(req.MimeType) == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown mime type " + req.MimeType})
		return
	}

	message, err := s.messaging.SendMessage(c.Request.Context(), auth.CallerID(c), c.Param("peerId"), domain.Payload{
		Text:     req.Text,
		FileRef:  req.FileRef,
		FileName: req.FileName,
	})
	if err != nil {
		c.JSON(errors.MapToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, toMessageResponse(message))
}

// MarkViewed flips the read receipt. Repeating the call returns the same
// record with no error.
func (s *Server) MarkViewed(c *gin.Context) {
	messageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}
	message, err := s.messaging.MarkViewed(messageID)
	if err != nil {
		c.JSON(errors.MapToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toMessageResponse(message))
}

func (s *Server) SearchMessages(c *gin.Context) {
	terms := c.Query("q")
	if terms == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query parameter q"})
		return
	}
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}
	results, err := s.messaging.SearchMessages(c.Request.Context(), auth.CallerID(c), terms, limit)
	if err != nil {
		c.JSON(errors.MapToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toMessageResponses(results))
}

// The response shape is the same as the push event body, so clients decode
// one message representation everywhere.
func toMessageResponse(m domain.Message) event.MessageBody {
	return event.NewMessageEnvelope(m).Message
}

func toMessageResponses(messages []domain.Message) []event.MessageBody {
	return lo.Map(messages, func(m domain.Message, _ int) event.MessageBody {
		return toMessageResponse(m)
	})
}
