package handlers

import (
	"net/http"
	"time"

	"fabrino-server/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type navigateRequest struct {
	View      services.View `json:"view" binding:"required"`
	ProductID string        `json:"product_id"`
}

// GetSession returns the caller's session snapshot.
func GetSession(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"session": currentSession(c).State()})
}

// Navigate switches the session's view.
func Navigate(c *gin.Context) {
	var req navigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess := currentSession(c)
	if req.View == services.ViewProduct {
		if _, err := catalogue.Find(req.ProductID); err != nil {
			respondError(c, err)
			return
		}
	}
	if err := sess.Navigate(req.View, req.ProductID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sess.State()})
}

// SessionEvents streams session notifications over a websocket. The first
// message is the current state. The session stays alive while the stream is open.
func SessionEvents(c *gin.Context) {
	sess := currentSession(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	events, release := sess.Subscribe(16)
	defer release()

	logger := log.WithField("session_id", sess.ID)
	logger.Debug("Session event stream opened")

	// The reader only handles control frames and notices the client leaving.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			sess.Touch()
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	write := func(v any) error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(v)
	}

	if err := write(services.SessionEvent{Kind: services.EventSnapshot, At: time.Now(), State: sess.State()}); err != nil {
		return
	}

	ticker := time.NewTicker(eventsPing)
	defer ticker.Stop()

	for {
		select {
		case evt, ok := <-events:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "session expired"),
					time.Now().Add(wsWriteWait))
				return
			}
			if err := write(evt); err != nil {
				logger.WithError(err).Debug("Session event write failed")
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
			// A connected stream keeps its session from being swept.
			sess.Touch()
		case <-closed:
			logger.Debug("Session event stream closed")
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}
