package socket

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/matic113/freelance-platform-sub003/internal/api/middleware"
	"github.com/matic113/freelance-platform-sub003/internal/domain"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler upgrades authenticated requests to websocket subscriptions.
type Handler struct {
	hub       *Hub
	jwtSecret string
	watch     WatchFunc
	ctx       context.Context
}

// NewHandler builds the upgrade handler. Connections live until the
// peer leaves or ctx is cancelled.
func NewHandler(ctx context.Context, hub *Hub, jwtSecret string, watch WatchFunc) *Handler {
	return &Handler{hub: hub, jwtSecret: jwtSecret, watch: watch, ctx: ctx}
}

// ServeWS authenticates with the token query parameter or the bearer
// header, since browsers cannot set headers on websocket requests.
// An optional contract query parameter joins that contract's room.
func (h *Handler) ServeWS(c *gin.Context) {
	tokenString, ok := middleware.BearerToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No token provided", "kind": domain.KindAuthorization})
		return
	}
	actor, err := middleware.ParseToken(tokenString, h.jwtSecret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "kind": domain.KindAuthorization})
		return
	}

	contractID := c.Query("contract")
	if contractID != "" && h.watch != nil {
		if err := h.watch(c.Request.Context(), actor, contractID); err != nil {
			kind := domain.KindOf(err)
			status := http.StatusForbidden
			if kind == domain.KindNotFound {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": err.Error(), "kind": kind})
			return
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.hub.logger.Warn("websocket upgrade failed", "user_id", actor.UserID, "error", err)
		return
	}

	client := NewClient(h.hub, actor, conn, h.watch)
	h.hub.Register(client)
	if contractID != "" {
		h.hub.JoinRoom(client, ContractRoom(contractID))
	}

	go client.WritePump()
	go client.ReadPump(h.ctx)
}
