package socket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/matic113/freelance-platform-sub003/internal/api/middleware"
	"github.com/matic113/freelance-platform-sub003/internal/domain"
	"github.com/matic113/freelance-platform-sub003/internal/events"
	"github.com/matic113/freelance-platform-sub003/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "socket-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	hub    *Hub
	server *httptest.Server
	watch  map[string]bool
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	f := &fixture{hub: NewHub(nil), watch: map[string]bool{}}
	go f.hub.Run(ctx)

	watch := func(_ context.Context, actor domain.Actor, contractID string) error {
		if !f.watch[contractID] {
			return domain.Errorf(domain.ErrAuthorization, "%s is not a party to %s", actor.UserID, contractID)
		}
		return nil
	}

	r := gin.New()
	r.GET("/api/ws", NewHandler(ctx, f.hub, secret, watch).ServeWS)
	f.server = httptest.NewServer(r)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fixture) dial(t *testing.T, actor domain.Actor, query string) *websocket.Conn {
	t.Helper()
	tok, _, err := middleware.GenerateToken(actor.UserID, actor.Role, secret, time.Hour)
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/api/ws?token=" + tok + query
	before := f.hub.ClientCount()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return f.hub.ClientCount() == before+1 }, time.Second, 5*time.Millisecond)
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	var m Message
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&m))
	return m
}

func TestServeWS_RejectsMissingToken(t *testing.T) {
	f := newFixture(t)
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/api/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServeWS_RejectsUnwatchableContract(t *testing.T) {
	f := newFixture(t)
	tok, _, err := middleware.GenerateToken(testutil.ClientID, domain.RoleClient, secret, time.Hour)
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/api/ws?token=" + tok + "&contract=other"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestBroadcaster_DeliversToPartiesOnce(t *testing.T) {
	f := newFixture(t)
	f.watch["c-1"] = true

	client := f.dial(t, testutil.Client, "&contract=c-1")
	freelancer := f.dial(t, testutil.Freelancer, "")
	outsider := f.dial(t, domain.Actor{UserID: "someone-else", Role: domain.RoleClient}, "")

	c := testutil.NewTestContract("Site")
	c.ID = "c-1"
	e := events.ForContract(c, testutil.Client, testutil.Now())
	require.NoError(t, NewBroadcaster(f.hub).Publish(context.Background(), e))

	for _, conn := range []*websocket.Conn{client, freelancer} {
		m := readMessage(t, conn)
		assert.Equal(t, MessageEvent, m.Type)
		require.NotNil(t, m.Event)
		assert.Equal(t, events.ContractUpdated, m.Event.Type)
		assert.Equal(t, "c-1", m.Event.ContractID)
	}

	// The client sits in both its user room and the contract room but
	// receives the event once; the next frame is the pong.
	require.NoError(t, client.WriteJSON(ClientMessage{Action: "ping"}))
	assert.Equal(t, MessagePong, readMessage(t, client).Type)

	require.NoError(t, outsider.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := outsider.ReadMessage()
	assert.Error(t, err)
}

func TestClient_JoinRequiresWatchPermission(t *testing.T) {
	f := newFixture(t)
	f.watch["c-2"] = true
	conn := f.dial(t, testutil.Freelancer, "")

	require.NoError(t, conn.WriteJSON(ClientMessage{Action: "join", ContractID: "c-3"}))
	m := readMessage(t, conn)
	assert.Equal(t, MessageError, m.Type)
	assert.Contains(t, m.Error, "not authorized")

	require.NoError(t, conn.WriteJSON(ClientMessage{Action: "join", ContractID: "c-2"}))
	m = readMessage(t, conn)
	assert.Equal(t, MessageAck, m.Type)
	assert.Equal(t, ContractRoom("c-2"), m.Room)
	assert.Equal(t, 1, f.hub.RoomSize(ContractRoom("c-2")))

	require.NoError(t, conn.WriteJSON(ClientMessage{Action: "leave", ContractID: "c-2"}))
	assert.Equal(t, MessageAck, readMessage(t, conn).Type)
	assert.Equal(t, 0, f.hub.RoomSize(ContractRoom("c-2")))
}

func TestHub_RemovesClosedConnections(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t, testutil.Client, "")
	assert.Equal(t, 1, f.hub.RoomSize(UserRoom(testutil.ClientID)))

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return f.hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, f.hub.RoomSize(UserRoom(testutil.ClientID)))
}
