package socket

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"datastory/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	maxMessageSize = 1 << 20
	writeWait      = 10 * time.Second
	pingPeriod     = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin is checked by the CORS layer in front of the admin routes.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWs upgrades an editor connection and joins it to the room of ?slug=.
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request, userID string) {
	slug := r.URL.Query().Get("slug")
	if slug == "" {
		http.Error(w, "Missing slug parameter", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Sugar.Error(err)
		return
	}
	conn.SetReadLimit(maxMessageSize)

	client := &Client{
		Hub:    hub,
		Conn:   conn,
		ID:     newClientID(),
		Slug:   slug,
		UserID: userID,
		Send:   make(chan []byte, 256),
	}

	client.Hub.Register <- client

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()

	for {
		_, rawMessage, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Sugar.Errorf("error: %v", err)
			}
			break
		}

		var msg WSMessage
		if err := json.Unmarshal(rawMessage, &msg); err != nil {
			logger.Sugar.Errorf("Error unmarshalling message: %v", err)
			continue
		}

		// Server-authoritative fields.
		msg.Slug = c.Slug
		msg.UserID = c.UserID
		msg.sender = c

		switch msg.Type {
		case SavedType, DeletedType, PreviewType, PresenceUpdateType:
			logger.Sugar.Warnf("Client %s tried to send server-only message %s", c.ID, msg.Type)
			continue
		}

		c.Hub.Broadcast <- msg
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func newClientID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("c-%d", time.Now().UnixNano())
	}
	return fmt.Sprintf("%x", b)
}
