package client

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/matic113/freelance-platform-sub003/internal/domain"
)

// RemoteError is an error reported by the server. Its message is shown to
// the user as-is; errors.Is matches the domain sentinel for Kind.
type RemoteError struct {
	Status  int
	Kind    domain.ErrorKind
	Message string
}

func (e *RemoteError) Error() string {
	return e.Message
}

func (e *RemoteError) Unwrap() error {
	return domain.SentinelFor(e.Kind)
}

// NetworkError wraps a transport failure. It matches domain.ErrNetwork as
// well as the underlying cause.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, domain.ErrNetwork, e.Err)
}

func (e *NetworkError) Unwrap() []error {
	return []error{domain.ErrNetwork, e.Err}
}

type errorBody struct {
	Error string           `json:"error"`
	Kind  domain.ErrorKind `json:"kind"`
}

func decodeRemoteError(status int, body []byte) *RemoteError {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil || eb.Error == "" {
		eb.Error = fmt.Sprintf("server returned %d %s", status, http.StatusText(status))
	}
	if eb.Kind == "" {
		eb.Kind = kindForStatus(status)
	}
	return &RemoteError{Status: status, Kind: eb.Kind, Message: eb.Error}
}

// kindForStatus covers responses that did not come from the API handlers,
// such as a proxy error page.
func kindForStatus(status int) domain.ErrorKind {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return domain.KindValidation
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.KindAuthorization
	case http.StatusNotFound:
		return domain.KindNotFound
	case http.StatusConflict, http.StatusPreconditionFailed:
		return domain.KindConflict
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return domain.KindNetwork
	default:
		return domain.KindInternal
	}
}
