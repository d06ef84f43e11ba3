package socket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/matic113/freelance-platform-sub003/internal/domain"
	"github.com/matic113/freelance-platform-sub003/internal/events"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize int64 = 4096

	sendBuffer = 256
)

// MessageType tags frames sent to subscribers.
type MessageType string

const (
	MessageEvent MessageType = "event"
	MessageAck   MessageType = "ack"
	MessagePong  MessageType = "pong"
	MessageError MessageType = "error"
)

// Message is the frame written to subscribers.
type Message struct {
	Type      MessageType   `json:"type"`
	Event     *events.Event `json:"event,omitempty"`
	Action    string        `json:"action,omitempty"`
	Room      string        `json:"room,omitempty"`
	Error     string        `json:"error,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// ClientMessage is a frame read from a subscriber.
type ClientMessage struct {
	Action     string `json:"action"`
	ContractID string `json:"contractId,omitempty"`
}

// WatchFunc reports whether actor may follow contractID's room.
type WatchFunc func(ctx context.Context, actor domain.Actor, contractID string) error

// Client is one websocket connection.
type Client struct {
	id    string
	actor domain.Actor
	conn  *websocket.Conn
	hub   *Hub
	watch WatchFunc
	send  chan []byte
	rooms map[string]bool
}

func NewClient(hub *Hub, actor domain.Actor, conn *websocket.Conn, watch WatchFunc) *Client {
	return &Client{
		id:    uuid.New().String(),
		actor: actor,
		conn:  conn,
		hub:   hub,
		watch: watch,
		send:  make(chan []byte, sendBuffer),
		rooms: make(map[string]bool),
	}
}

// ReadPump reads subscriber frames until the connection drops.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("websocket read failed", "user_id", c.actor.UserID, "error", err)
			}
			return
		}
		c.handleMessage(ctx, message)
	}
}

// WritePump writes queued frames and keepalive pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(ctx context.Context, raw []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.reply(Message{Type: MessageError, Error: "malformed message"})
		return
	}

	switch msg.Action {
	case "join":
		if err := c.join(ctx, msg.ContractID); err != nil {
			c.reply(Message{Type: MessageError, Action: msg.Action, Room: ContractRoom(msg.ContractID), Error: err.Error()})
			return
		}
		c.reply(Message{Type: MessageAck, Action: "joined", Room: ContractRoom(msg.ContractID)})

	case "leave":
		c.hub.LeaveRoom(c, ContractRoom(msg.ContractID))
		c.reply(Message{Type: MessageAck, Action: "left", Room: ContractRoom(msg.ContractID)})

	case "ping":
		c.reply(Message{Type: MessagePong})

	default:
		c.reply(Message{Type: MessageError, Action: msg.Action, Error: "unknown action"})
	}
}

func (c *Client) join(ctx context.Context, contractID string) error {
	if contractID == "" {
		return domain.Errorf(domain.ErrValidation, "contractId is required")
	}
	if c.watch != nil {
		if err := c.watch(ctx, c.actor, contractID); err != nil {
			return err
		}
	}
	c.hub.JoinRoom(c, ContractRoom(contractID))
	return nil
}

func (c *Client) reply(m Message) {
	m.Timestamp = time.Now().UTC()
	data, err := json.Marshal(m)
	if err != nil {
		return
	}
	if !c.hub.sendTo(c, data) {
		c.hub.logger.Warn("failed to queue reply", "user_id", c.actor.UserID, "type", m.Type)
	}
}
