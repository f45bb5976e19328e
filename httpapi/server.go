// Package httpapi exposes the messaging core over HTTP and a websocket
// push channel.
package httpapi

import (
	"log/slog"

	"chat-duo/auth"
	"chat-duo/realtime"
	"chat-duo/services"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// StatsProvider supplies the current process health snapshot for /healthz.
type StatsProvider func() map[string]any

type Server struct {
	messaging            services.IMessagingService
	users                services.IUserService
	registry             *realtime.Registry
	stats                StatsProvider
	log                  *slog.Logger
	connectionBufferSize int
	validate             *validator.Validate
}

func NewServer(
	messaging services.IMessagingService,
	users services.IUserService,
	registry *realtime.Registry,
	stats StatsProvider,
	log *slog.Logger,
	connectionBufferSize int,
) *Server {
	return &Server{
		messaging:            messaging,
		users:                users,
		registry:             registry,
		stats:                stats,
		log:                  log,
		connectionBufferSize: connectionBufferSize,
		validate:             validator.New(),
	}
}

// Routes mounts all endpoints on a fresh engine. Everything except the
// health probe sits behind the identity middleware.
func (s *Server) Routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", s.Health)

	authed := r.Group("/", auth.Middleware())
	authed.GET("/conversations/:peerId", s.GetThread)
	authed.POST("/conversations/:peerId/messages", s.SendMessage)
	authed.POST("/messages/:id/viewed", s.MarkViewed)
	authed.GET("/messages/search", s.SearchMessages)
	authed.GET("/contacts", s.GetContacts)
	authed.GET("/users/:handle", s.GetUserByHandle)
	authed.GET("/ws", s.Connect)
	return r
}

func (s *Server) Health(c *gin.Context) {
	snapshot := map[string]any{"status": "ok"}
	if s.stats != nil {
		for k, v := range s.stats() {
			snapshot[k] = v
		}
	}
	c.JSON(200, snapshot)
}
