package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/matic113/freelance-platform-sub003/internal/app"
	"github.com/matic113/freelance-platform-sub003/internal/domain"
)

func contractPath(id string) string {
	return "/api/contracts/" + url.PathEscape(id)
}

func (c *Client) ListContracts(ctx context.Context) ([]app.ContractView, error) {
	var out []app.ContractView
	if err := c.do(ctx, http.MethodGet, "/api/contracts", 0, nil, &out); err != nil {
		return nil, err
	}
	for _, v := range out {
		c.cache.PutContract(v)
	}
	return out, nil
}

// GetContract fetches a contract with its milestones and payment requests
// and replaces all of them in the cache.
func (c *Client) GetContract(ctx context.Context, id string) (*app.ContractDetail, error) {
	var out app.ContractDetail
	if err := c.do(ctx, http.MethodGet, contractPath(id), 0, nil, &out); err != nil {
		return nil, c.reconcile(id, err)
	}
	c.cache.PutDetail(&out)
	return &out, nil
}

func (c *Client) Summary(ctx context.Context, id string) (app.SummaryView, error) {
	var out app.SummaryView
	err := c.do(ctx, http.MethodGet, contractPath(id)+"/summary", 0, nil, &out)
	return out, err
}

// CreateContract raises a contract, normally from an accepted proposal.
func (c *Client) CreateContract(ctx context.Context, req app.CreateContractRequest) (*app.ContractDetail, error) {
	if err := domain.ValidatePositiveAmount("total amount", req.TotalAmount); err != nil {
		return nil, err
	}
	for _, m := range req.Milestones {
		if err := m.Validate(); err != nil {
			return nil, err
		}
	}
	var out app.ContractDetail
	if err := c.do(ctx, http.MethodPost, "/api/contracts", 0, req, &out); err != nil {
		return nil, err
	}
	c.cache.PutDetail(&out)
	return &out, nil
}

func (c *Client) AcceptContract(ctx context.Context, id string) (*app.ContractView, error) {
	return c.contractTransition(ctx, id, "accept", domain.ActionAcceptContract)
}

func (c *Client) RejectContract(ctx context.Context, id string) (*app.ContractView, error) {
	return c.contractTransition(ctx, id, "reject", domain.ActionRejectContract)
}

func (c *Client) CancelContract(ctx context.Context, id string) (*app.ContractView, error) {
	return c.contractTransition(ctx, id, "cancel", domain.ActionCancelContract)
}

func (c *Client) contractTransition(ctx context.Context, id, verb string, action domain.Action) (*app.ContractView, error) {
	if err := c.permit(id, action); err != nil {
		return nil, err
	}
	var out app.ContractView
	if err := c.do(ctx, http.MethodPost, contractPath(id)+"/"+verb, c.contractVersion(id), nil, &out); err != nil {
		return nil, c.reconcile(id, err)
	}
	c.cache.PutContract(out)
	return &out, nil
}

// Statement downloads the contract's xlsx statement.
func (c *Client) Statement(ctx context.Context, id string) ([]byte, error) {
	return c.send(ctx, http.MethodGet, contractPath(id)+"/statement", 0, nil)
}
