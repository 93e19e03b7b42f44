package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"quizzy/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	EventTestStarted    = "test_started"
	EventAnswerRecorded = "answer_recorded"

	writeWait = 10 * time.Second
)

// Notifier receives progress events for a quiz.
type Notifier interface {
	Publish(quizID, eventType string, payload any)
}

type Message struct {
	Type    string `json:"type"`
	QuizID  string `json:"quizId,omitempty"`
	Payload any    `json:"payload"`
}

type outbound struct {
	quizID string
	data   []byte
}

// Hub fans quiz progress events out to the websocket clients watching that quiz.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mutex      sync.RWMutex
}

type Client struct {
	hub    *Hub
	id     string
	socket *websocket.Conn
	send   chan []byte
	quizID string
	email  string
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan outbound, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run serves registrations and broadcasts until ctx is cancelled, then closes
// every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mutex.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mutex.Unlock()
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mutex.Unlock()
			logger.Log.Debug("Client registered",
				zap.String("client", client.id),
				zap.String("quiz", client.quizID),
				zap.String("email", client.email),
				zap.Int("total", total))

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				logger.Log.Debug("Client unregistered",
					zap.String("client", client.id),
					zap.String("quiz", client.quizID))
			}
			h.mutex.Unlock()

		case msg := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				if client.quizID != msg.quizID {
					continue
				}
				select {
				case client.send <- msg.data:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Publish never blocks the caller; events are dropped when the hub is behind.
func (h *Hub) Publish(quizID, eventType string, payload any) {
	data, err := json.Marshal(Message{Type: eventType, QuizID: quizID, Payload: payload})
	if err != nil {
		logger.Log.Error("Error marshaling message", zap.String("type", eventType), zap.Error(err))
		return
	}
	select {
	case h.broadcast <- outbound{quizID: quizID, data: data}:
	default:
		logger.Log.Warn("Dropping progress event", zap.String("type", eventType), zap.String("quiz", quizID))
	}
}

func (h *Hub) Watchers(quizID string) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	n := 0
	for client := range h.clients {
		if client.quizID == quizID {
			n++
		}
	}
	return n
}

func (h *Hub) RegisterClient(conn *websocket.Conn, quizID, email string) *Client {
	client := &Client{
		hub:    h,
		id:     uuid.NewString(),
		socket: conn,
		send:   make(chan []byte, 256),
		quizID: quizID,
		email:  email,
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return nil
	}

	go client.writePump()
	go client.readPump()

	return client
}

func (h *Hub) UnregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.UnregisterClient(c)
		c.socket.Close()
	}()

	// Watchers only listen; inbound frames are read to service control
	// messages and detect disconnects.
	for {
		if _, _, err := c.socket.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Warn("WebSocket read error", zap.String("client", c.id), zap.Error(err))
			}
			return
		}
	}
}

func (c *Client) writePump() {
	defer c.socket.Close()

	for message := range c.send {
		c.socket.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.socket.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	c.socket.SetWriteDeadline(time.Now().Add(writeWait))
	c.socket.WriteMessage(websocket.CloseMessage, []byte{})
}
