package httpapi

import (
	"net/http"

	"chat-duo/auth"
	"chat-duo/domain"
	"chat-duo/errors"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

type userResponse struct {
	ID        string `json:"id"`
	Handle    string `json:"handle"`
	CreatedAt string `json:"createdAt"`
}

// GetContacts lists the users the caller has exchanged messages with.
func (s *Server) GetContacts(c *gin.Context) {
	contacts, err := s.users.Contacts(auth.CallerID(c))
	if err != nil {
		c.JSON(errors.MapToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, lo.Map(contacts, func(u domain.Summary, _ int) userResponse {
		return toUserResponse(u)
	}))
}

// GetUserByHandle resolves a human-readable handle to a user summary.
func (s *Server) GetUserByHandle(c *gin.Context) {
	user, err := s.users.ByHandle(c.Param("handle"))
	if err != nil {
		c.JSON(errors.MapToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

func toUserResponse(u domain.Summary) userResponse {
	return userResponse{
		ID:        u.ID,
		Handle:    u.Handle,
		CreatedAt: u.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}
