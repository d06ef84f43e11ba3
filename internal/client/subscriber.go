package client

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/matic113/freelance-platform-sub003/internal/domain"
	"github.com/matic113/freelance-platform-sub003/internal/events"
)

// frame mirrors the server's live-update message.
type frame struct {
	Type  string        `json:"type"`
	Event *events.Event `json:"event,omitempty"`
	Room  string        `json:"room,omitempty"`
	Error string        `json:"error,omitempty"`
}

type command struct {
	Action     string `json:"action"`
	ContractID string `json:"contractId,omitempty"`
}

// Subscriber listens for lifecycle events and writes every pushed entity
// into a Cache, replacing what was there.
type Subscriber struct {
	baseURL string
	token   string
	cache   *Cache
	dialer  *websocket.Dialer
	logger  *slog.Logger

	// OnEvent, when set, is called after each event is applied.
	OnEvent func(events.Event)
}

func NewSubscriber(c *Client, logger *slog.Logger) *Subscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &Subscriber{
		baseURL: c.BaseURL(),
		token:   c.Token(),
		cache:   c.Cache(),
		dialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		logger:  logger,
	}
}

func (s *Subscriber) endpoint() (string, error) {
	u, err := url.Parse(s.baseURL)
	if err != nil {
		return "", domain.Errorf(domain.ErrValidation, "invalid server url %q", s.baseURL)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api/ws"
	q := u.Query()
	q.Set("token", s.token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Run connects, joins the given contract rooms and applies events until ctx
// is cancelled or the connection drops. It does not reconnect.
func (s *Subscriber) Run(ctx context.Context, contractIDs ...string) error {
	endpoint, err := s.endpoint()
	if err != nil {
		return err
	}
	conn, resp, err := s.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		if resp != nil {
			return decodeRemoteError(resp.StatusCode, nil)
		}
		return &NetworkError{Op: "dial live updates", Err: err}
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			conn.Close()
		case <-done:
		}
	}()

	for _, id := range contractIDs {
		if err := conn.WriteJSON(command{Action: "join", ContractID: id}); err != nil {
			return &NetworkError{Op: "join " + id, Err: err}
		}
	}

	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return &NetworkError{Op: "read live update", Err: err}
		}
		s.handle(f)
	}
}

func (s *Subscriber) handle(f frame) {
	switch f.Type {
	case "event":
		if f.Event == nil {
			return
		}
		s.cache.Apply(*f.Event)
		s.logger.Debug("live update applied", "type", f.Event.Type, "contract_id", f.Event.ContractID)
		if s.OnEvent != nil {
			s.OnEvent(*f.Event)
		}
	case "error":
		s.logger.Warn("live update channel error", "error", f.Error)
	case "ack":
		s.logger.Debug("joined room", "room", f.Room)
	}
}
