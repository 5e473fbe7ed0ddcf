package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// stream pushes live quotes to the client until it disconnects.
func (s *Server) stream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Log.Warn("ws upgrade error", zap.Error(err))
		return
	}
	defer conn.Close()

	if s.Hub == nil {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"stream not available"}`))
		return
	}

	ticks, unsub := s.Hub.Subscribe(100)
	defer unsub()

	// Read pump: surface client disconnects so the write loop exits.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case tick, ok := <-ticks:
			if !ok {
				return
			}
			if err := conn.WriteJSON(tick); err != nil {
				s.Log.Debug("ws write error", zap.Error(err))
				return
			}
		}
	}
}
