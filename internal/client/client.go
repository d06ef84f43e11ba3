// Package client talks to the lifecycle REST API. It keeps a cache of the
// entities it has seen, runs the rules table locally to refuse requests the
// server would certainly reject, and surfaces server errors unchanged.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/matic113/freelance-platform-sub003/internal/domain"
)

// Client calls the API on behalf of one authenticated user. Mutations are
// never retried.
type Client struct {
	baseURL string
	token   string
	actor   domain.Actor
	http    *http.Client
	cache   *Cache
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithCache shares a cache, typically with a Subscriber.
func WithCache(cache *Cache) Option {
	return func(c *Client) { c.cache = cache }
}

// New creates a Client for baseURL. The actor is read from the token's
// claims; the server remains responsible for verifying it.
func New(baseURL, token string, opts ...Option) (*Client, error) {
	actor, err := ActorFromToken(token)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		actor:   actor,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 5 * time.Second,
				}).DialContext,
			},
		},
		cache: NewCache(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ActorFromToken reads the subject and role from a JWT without checking
// its signature.
func ActorFromToken(token string) (domain.Actor, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return domain.Actor{}, domain.Errorf(domain.ErrAuthorization, "unreadable token: %v", err)
	}
	sub, _ := claims.GetSubject()
	role, _ := claims["role"].(string)
	if sub == "" || !domain.ValidRoles[role] {
		return domain.Actor{}, domain.Errorf(domain.ErrAuthorization, "token has no usable subject or role")
	}
	return domain.Actor{UserID: sub, Role: domain.Role(role)}, nil
}

func (c *Client) Actor() domain.Actor { return c.actor }

func (c *Client) Cache() *Cache { return c.cache }

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) Token() string { return c.token }

// send performs one request. ifMatch > 0 adds an If-Match precondition.
// Non-2xx responses become *RemoteError and transport failures *NetworkError.
func (c *Client) send(ctx context.Context, method, path string, ifMatch int, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if ifMatch > 0 {
		req.Header.Set("If-Match", `"`+strconv.Itoa(ifMatch)+`"`)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: method + " " + path, Err: err}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, decodeRemoteError(resp.StatusCode, respBody)
	}
	return respBody, nil
}

func (c *Client) do(ctx context.Context, method, path string, ifMatch int, body, out any) error {
	data, err := c.send(ctx, method, path, ifMatch, body)
	if err != nil {
		return err
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", method, path, err)
	}
	return nil
}

// reconcile evicts id when the server says our copy is stale or gone.
func (c *Client) reconcile(id string, err error) error {
	if errors.Is(err, domain.ErrConflict) || errors.Is(err, domain.ErrNotFound) {
		c.cache.Evict(id)
	}
	return err
}

// permit runs the rules table against the cached contract. Without a cached
// contract there is nothing to check and the server decides.
func (c *Client) permit(contractID string, action domain.Action, targets ...domain.Target) error {
	cv, ok := c.cache.Contract(contractID)
	if !ok {
		return nil
	}
	ct, err := cv.Domain()
	if err != nil {
		return nil
	}
	return domain.Permit(c.actor, ct, action, targets...)
}

func (c *Client) milestoneTargets(id string) []domain.Target {
	if v, ok := c.cache.Milestone(id); ok {
		return []domain.Target{{Entity: domain.EntityMilestone, Status: string(v.Status)}}
	}
	return nil
}

func (c *Client) contractVersion(id string) int {
	if v, ok := c.cache.Contract(id); ok {
		return v.Version
	}
	return 0
}

func (c *Client) milestoneVersion(id string) int {
	if v, ok := c.cache.Milestone(id); ok {
		return v.Version
	}
	return 0
}
