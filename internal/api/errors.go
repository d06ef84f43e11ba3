package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/matic113/freelance-platform-sub003/internal/api/middleware"
	"github.com/matic113/freelance-platform-sub003/internal/domain"
	"github.com/matic113/freelance-platform-sub003/internal/logger"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string           `json:"error"`
	Kind  domain.ErrorKind `json:"kind"`
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusUnprocessableEntity
	case domain.KindInvalidState, domain.KindConflict:
		return http.StatusConflict
	case domain.KindAuthorization:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	kind := domain.KindOf(err)
	status := StatusFor(kind)

	msg := err.Error()
	if kind == domain.KindInternal {
		logger.Error(c.Request.Context(), "request failed", "error", err, "path", c.FullPath())
		msg = "internal server error"
	}
	c.JSON(status, ErrorResponse{Error: msg, Kind: kind})
}

// bindJSON decodes the body into v, reporting malformed input as a
// validation error.
func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		writeError(c, domain.Errorf(domain.ErrValidation, "invalid request body: %v", err))
		return false
	}
	return true
}

func actor(c *gin.Context) domain.Actor {
	return middleware.GetActor(c)
}
