package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/cristianortiz/nftAuction/internal/shared/logger"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// Outbound messages buffered per client before it is considered stuck.
	sendBuffer = 64
)

// Hub keeps client's registry and handle messages broadcasting
type Hub struct {
	// Registered clients, grouped by topic (an auction id).
	// The inner map keys are clients, and the boolean value is ignored.
	clients map[string]map[*Client]bool
	// Outbound messages for every client of a topic
	broadcast chan *Message
	// Register requests from the clients.
	register chan *Client
	// Unregister requests from clients.
	unregister chan *Client
	counts     chan countRequest
	// InboundMessages is listened to by module-specific handlers (e.g, auction handler)
	InboundMessages chan *ClientMessage
}

// Client represents a ws individual connection
type Client struct {
	Hub *Hub
	// The websocket connection.
	Conn *websocket.Conn
	// Buffered channel of outbound messages. Writers go through TrySend, only the hub closes it.
	Send chan []byte
	mu   sync.Mutex
	done bool
	// The topic this client is subscribed to.
	Topic string
	// Unique identifier for the client
	ID         string
	RemoteAddr string
}

type Message struct {
	Topic string
	Data  []byte
}

// ClientMessage wraps the client and the data it sent, so hub handlers can answer it.
type ClientMessage struct {
	Client *Client
	Data   []byte
}

type countRequest struct {
	topic string
	reply chan int
}

func NewHub() *Hub {
	return &Hub{
		broadcast:       make(chan *Message, 256),
		register:        make(chan *Client, 64),
		unregister:      make(chan *Client, 64),
		counts:          make(chan countRequest),
		clients:         make(map[string]map[*Client]bool),
		InboundMessages: make(chan *ClientMessage, 256),
	}
}

// NewClient builds a client subscribed to topic. conn may be nil for clients that are never
// pumped, such as in tests.
func (h *Hub) NewClient(conn *websocket.Conn, topic string) *Client {
	c := &Client{
		Hub:   h,
		Conn:  conn,
		Send:  make(chan []byte, sendBuffer),
		Topic: topic,
		ID:    uuid.NewString(),
	}
	if conn != nil {
		c.RemoteAddr = conn.RemoteAddr().String()
	}
	return c
}

// TrySend queues data for the client without blocking. It reports false when the queue is
// full or the client was already closed.
func (c *Client) TrySend(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

// close closes Send once.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.done {
		c.done = true
		close(c.Send)
	}
}

func (h *Hub) total() int {
	count := 0
	for _, topicClients := range h.clients {
		count += len(topicClients)
	}
	return count
}

// Run starts the hub listening in their channels
func (h *Hub) Run(ctx context.Context) {
	log.Info("Websocket Hub started")
	for {
		select {
		case <-ctx.Done():
			log.Info("WebSocket Hub shutting down due to context cancellation", zap.Int("total_clients", h.total()))
			for topic, clients := range h.clients {
				for client := range clients {
					client.close()
				}
				delete(h.clients, topic)
			}
			return

		case client := <-h.register:
			if _, ok := h.clients[client.Topic]; !ok {
				h.clients[client.Topic] = make(map[*Client]bool)
			}
			h.clients[client.Topic][client] = true
			log.Info("Client registered",
				zap.String("clientID", client.ID),
				zap.String("topic", client.Topic),
				zap.String("remote_addr", client.RemoteAddr),
				zap.Int("total_clients", h.total()),
			)

		case client := <-h.unregister:
			if clients, ok := h.clients[client.Topic]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					client.close()
					log.Info("Client unregistered",
						zap.String("clientID", client.ID),
						zap.String("topic", client.Topic),
						zap.String("remote_addr", client.RemoteAddr),
						zap.Int("total_clients", h.total()),
					)
					if len(clients) == 0 {
						delete(h.clients, client.Topic)
						log.Debug("Topic group removed as empty", zap.String("topic", client.Topic))
					}
				}
			}

		case message := <-h.broadcast:
			if clients, ok := h.clients[message.Topic]; ok {
				log.Debug("Broadcasting message to topic", zap.String("topic", message.Topic), zap.Int("clients", len(clients)))
				for client := range clients {
					if !client.TrySend(message.Data) {
						// client is not draining its queue, drop it
						client.close()
						delete(clients, client)
						log.Warn("Failed to Send message to client, unregistering",
							zap.String("clientID", client.ID),
							zap.String("topic", client.Topic),
							zap.String("remote_addr", client.RemoteAddr),
						)
					}
				}
				if len(clients) == 0 {
					delete(h.clients, message.Topic)
				}
			}

		case req := <-h.counts:
			req.reply <- len(h.clients[req.topic])
		}
	}
}

// ClientCount returns how many clients are subscribed to topic. It needs a running hub.
func (h *Hub) ClientCount(ctx context.Context, topic string) (int, error) {
	req := countRequest{topic: topic, reply: make(chan int, 1)}
	select {
	case h.counts <- req:
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	select {
	case n := <-req.reply:
		return n, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// RegisterClient register a new client in the hub
func (h *Hub) RegisterClient(client *Client) {
	select {
	case h.register <- client:
		log.Debug("Client queued for registration",
			zap.String("clientID", client.ID),
			zap.String("topic", client.Topic),
		)
	default:
		log.Error("Register channel is full, client registration failed",
			zap.String("clientID", client.ID),
			zap.String("topic", client.Topic),
		)
		if client.Conn != nil {
			_ = client.Conn.Close()
		}
	}
}

// UnregisterClient delete a client from the hub
func (h *Hub) UnregisterClient(client *Client) {
	select {
	case h.unregister <- client:
		log.Debug("Client queued for unregistration",
			zap.String("clientID", client.ID),
			zap.String("topic", client.Topic),
		)
	default:
		log.Error("Unregister channel is full, client unregistration failed",
			zap.String("clientID", client.ID),
			zap.String("topic", client.Topic),
		)
	}
}

// Broadcast sends data to every client subscribed to topic.
func (h *Hub) Broadcast(topic string, data []byte) {
	select {
	case h.broadcast <- &Message{Topic: topic, Data: data}:
		log.Debug("Message queued for broadcast", zap.String("topic", topic))
	default:
		log.Error("Broadcast channel is full, message dropped", zap.String("topic", topic))
	}
}

// ReadPump reads client messages and hands them to the Hub's InboundMessages channel.
// It must run in its own goroutine, one per client.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.Hub.UnregisterClient(c)
		c.Conn.Close()
		log.Info("ReadPump stopped for client",
			zap.String("clientID", c.ID),
			zap.String("topic", c.Topic),
		)
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		select {
		case <-ctx.Done():
			log.Info("ReadPump context cancelled for client", zap.String("clientID", c.ID))
			return
		default:
		}

		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error("WebSocket read error",
					zap.String("clientID", c.ID),
					zap.String("topic", c.Topic),
					zap.String("remote_addr", c.RemoteAddr),
					zap.Error(err),
				)
			} else {
				log.Info("WebSocket connection closed by peer",
					zap.String("clientID", c.ID),
					zap.String("topic", c.Topic),
					zap.Error(err),
				)
			}
			return
		}

		log.Debug("Received message from client",
			zap.String("clientID", c.ID),
			zap.String("topic", c.Topic),
			zap.ByteString("message", message),
		)

		select {
		case c.Hub.InboundMessages <- &ClientMessage{Client: c, Data: message}:
		default:
			log.Error("Hub InboundMessages channel is full, dropping message",
				zap.String("clientID", c.ID),
				zap.String("topic", c.Topic),
			)
		}
	}
}

// WritePump pumps messages from the hub to the websocket connection.
// A goroutine running WritePump is started for each connection, so there is at most one
// writer per connection.
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Hub.UnregisterClient(c)
		c.Conn.Close()
		log.Info("WritePump stopped for client",
			zap.String("clientID", c.ID),
			zap.String("topic", c.Topic),
		)
	}()

	for {
		select {
		case <-ctx.Done():
			err := c.Conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			if err != nil {
				log.Error("Failed to send close control message",
					zap.String("clientID", c.ID),
					zap.Error(err),
				)
			}
			return

		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The Hub closed the channel.
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// one JSON document per frame
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error("Failed to write message to client",
					zap.String("clientID", c.ID),
					zap.String("topic", c.Topic),
					zap.Error(err),
				)
				return
			}

		case <-ticker.C:
			if err := c.Conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Error("Failed to write ping message to client",
					zap.String("clientID", c.ID),
					zap.Error(err),
				)
				return
			}
		}
	}
}
