package ws

import (
	"encoding/json"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/net/websocket"
)

type Handler struct {
	hub *Hub
}

func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

type subscribeMessage struct {
	Action  string `json:"action"`
	Channel string `json:"channel"`
}

// UserChannel is the topic a user's live notifications are published on.
func UserChannel(userID string) string {
	return "user:" + userID + ":notifications"
}

// HandleWebSocket upgrades the connection for an authenticated user. The
// client can only ever subscribe to its own notification channel; the user id
// comes from the access token, not from the subscribe message.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	uid, ok := c.Get("user_id")
	if !ok {
		c.AbortWithStatus(401)
		return
	}
	userID, ok := uid.(string)
	if !ok || userID == "" {
		c.AbortWithStatus(401)
		return
	}

	websocket.Handler(func(conn *websocket.Conn) {
		client := NewClient(conn)
		go h.writer(client)
		h.reader(client, userID)
	}).ServeHTTP(c.Writer, c.Request)
}

func (h *Handler) reader(client *Client, userID string) {
	defer func() {
		h.hub.UnsubscribeAll(client)
		client.shutdown()
		_ = client.conn.Close()
	}()

	for {
		var raw string
		if err := websocket.Message.Receive(client.conn, &raw); err != nil {
			return
		}
		var msg subscribeMessage
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			continue
		}
		if strings.ToLower(strings.TrimSpace(msg.Action)) != "subscribe" {
			continue
		}
		if strings.ToLower(strings.TrimSpace(msg.Channel)) != "notifications" {
			continue
		}
		h.hub.Subscribe(UserChannel(userID), client)
	}
}

func (h *Handler) writer(client *Client) {
	for payload := range client.out {
		if err := websocket.Message.Send(client.conn, string(payload)); err != nil {
			return
		}
	}
}
