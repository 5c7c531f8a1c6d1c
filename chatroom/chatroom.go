// Package chatroom pushes room events to browsers subscribed over websocket.
package chatroom

import (
	"baseroom/logs"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 64
)

type WSMessage struct {
	Type string      `json:"type"` // "join", "leave", "message-created", ...
	Data interface{} `json:"data"`
}

type ChatPayload struct {
	Username  string    `json:"Username"`
	Content   string    `json:"Content"`
	Timestamp time.Time `json:"Timestamp"`
}

type Client struct {
	Conn     *websocket.Conn
	Username string
	send     chan []byte
}

// writePump delivers queued events until send is closed or a write fails.
func (cl *Client) writePump() {
	defer cl.Conn.Close()
	for payload := range cl.send {
		cl.Conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := cl.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			logs.Warning.Println("websocket write failed:", err)
			return
		}
	}
	cl.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	cl.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// Hub tracks the websocket subscribers of every room.
type Hub struct {
	mu       sync.RWMutex
	rooms    map[string]map[*Client]struct{}
	origins  map[string]struct{}
	upgrader websocket.Upgrader
}

// NewHub accepts websocket origins from allowedOrigins. With an empty list only
// same-host origins are accepted.
func NewHub(allowedOrigins []string) *Hub {
	h := &Hub{
		rooms:   make(map[string]map[*Client]struct{}),
		origins: make(map[string]struct{}),
	}
	for _, origin := range allowedOrigins {
		if normalized := normalizeOrigin(origin); normalized != "" {
			h.origins[normalized] = struct{}{}
		}
	}
	h.upgrader = websocket.Upgrader{CheckOrigin: h.checkOrigin}
	return h
}

func normalizeOrigin(origin string) string {
	u, err := url.Parse(origin)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Scheme + "://" + u.Host)
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if len(h.origins) == 0 {
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
	_, ok := h.origins[normalizeOrigin(origin)]
	return ok
}

// Serve upgrades the request and keeps the connection subscribed to roomUUID
// until the client goes away.
func (h *Hub) Serve(c *gin.Context, roomUUID, username string) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logs.Warning.Println("WebSocket upgrade failed:", err)
		return
	}

	client := &Client{Conn: conn, Username: username, send: make(chan []byte, sendBuffer)}
	done := make(chan struct{})
	go func() {
		client.writePump()
		close(done)
	}()
	h.join(roomUUID, client)

	// Clients only listen; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.leave(roomUUID, client)
	<-done
}

func (h *Hub) join(roomUUID string, client *Client) {
	h.mu.Lock()
	if _, ok := h.rooms[roomUUID]; !ok {
		h.rooms[roomUUID] = make(map[*Client]struct{})
	}
	h.rooms[roomUUID][client] = struct{}{}
	h.mu.Unlock()

	h.Publish(roomUUID, "join", ChatPayload{
		Username:  "System",
		Content:   fmt.Sprintf("%s has joined", client.Username),
		Timestamp: time.Now().UTC(),
	})
}

// leave unsubscribes client and closes its queue, which stops its writePump.
func (h *Hub) leave(roomUUID string, client *Client) {
	h.mu.Lock()
	room := h.rooms[roomUUID]
	if _, ok := room[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(room, client)
	close(client.send)
	if len(room) == 0 {
		delete(h.rooms, roomUUID)
	}
	h.mu.Unlock()

	h.Publish(roomUUID, "leave", ChatPayload{
		Username:  "System",
		Content:   fmt.Sprintf("%s has left", client.Username),
		Timestamp: time.Now().UTC(),
	})
}

// Publish queues an event for every subscriber of roomUUID without waiting on
// the network. A subscriber whose queue is full is dropped.
func (h *Hub) Publish(roomUUID, event string, data interface{}) {
	jsonBytes, err := json.Marshal(WSMessage{Type: event, Data: data})
	if err != nil {
		logs.Error.Println("failed to encode room event:", err)
		return
	}

	var stalled []*Client
	h.mu.RLock()
	for client := range h.rooms[roomUUID] {
		select {
		case client.send <- jsonBytes:
		default:
			stalled = append(stalled, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range stalled {
		logs.Warning.Println("dropping stalled websocket subscriber:", client.Username)
		h.leave(roomUUID, client)
	}
}

// Subscribers returns how many connections listen on roomUUID.
func (h *Hub) Subscribers(roomUUID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomUUID])
}
