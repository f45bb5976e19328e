package httpapi

import (
	"net/http"

	"chat-duo/auth"
	"chat-duo/realtime"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Connect upgrades the request to a websocket and registers it as the
// caller's presence. The handler blocks reading the socket until the client
// goes away, then unregisters with its own connection handle so a stale
// disconnect can never evict a newer session.
func (s *Server) Connect(c *gin.Context) {
	callerID := auth.CallerID(c)
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("Websocket upgrade failed", "user_id", callerID, "error", err)
		return
	}

	conn := realtime.NewConnection(callerID, ws, s.connectionBufferSize)
	conn.Start()
	s.registry.Register(callerID, conn)
	defer func() {
		s.registry.Unregister(callerID, conn)
		conn.Close(websocket.CloseNormalClosure, "client disconnected")
	}()

	// Inbound frames are not part of the protocol; the read loop only
	// services control frames and detects the close.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			s.log.Debug("Client disconnected", "user_id", callerID)
			return
		}
	}
}
