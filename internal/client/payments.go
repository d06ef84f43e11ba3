package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/matic113/freelance-platform-sub003/internal/app"
	"github.com/matic113/freelance-platform-sub003/internal/domain"
)

func paymentPath(id string) string {
	return "/api/payment-requests/" + url.PathEscape(id)
}

func (c *Client) ListPaymentRequests(ctx context.Context, contractID string) ([]app.PaymentRequestView, error) {
	var out []app.PaymentRequestView
	if err := c.do(ctx, http.MethodGet, contractPath(contractID)+"/payment-requests", 0, nil, &out); err != nil {
		return nil, err
	}
	for _, v := range out {
		c.cache.PutPaymentRequest(v)
	}
	return out, nil
}

func (c *Client) GetPaymentRequest(ctx context.Context, id string) (*app.PaymentRequestView, error) {
	var out app.PaymentRequestView
	if err := c.do(ctx, http.MethodGet, paymentPath(id), 0, nil, &out); err != nil {
		return nil, c.reconcile(id, err)
	}
	c.cache.PutPaymentRequest(out)
	return &out, nil
}

// CreatePaymentRequest raises payment for a completed milestone.
func (c *Client) CreatePaymentRequest(ctx context.Context, req app.CreatePaymentRequestRequest) (*app.PaymentRequestView, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := c.permit(req.ContractID, domain.ActionRequestPayment); err != nil {
		return nil, err
	}
	if v, ok := c.cache.Milestone(req.MilestoneID); ok {
		m := domain.Milestone{ID: v.ID, Status: v.Status}
		if err := m.CheckPayable(); err != nil {
			return nil, err
		}
	}
	var out app.PaymentRequestView
	if err := c.do(ctx, http.MethodPost, "/api/payment-requests", 0, req, &out); err != nil {
		return nil, c.reconcile(req.MilestoneID, err)
	}
	c.cache.PutPaymentRequest(out)
	return &out, nil
}

func (c *Client) ApprovePaymentRequest(ctx context.Context, id string) (*app.PaymentRequestView, error) {
	return c.paymentTransition(ctx, id, "approve", domain.ActionApprovePayment, nil)
}

// RejectPaymentRequest refuses a pending request. A blank reason fails
// locally without contacting the server.
func (c *Client) RejectPaymentRequest(ctx context.Context, id, reason string) (*app.PaymentRequestView, error) {
	if err := domain.ValidateRejectReason(reason); err != nil {
		return nil, err
	}
	return c.paymentTransition(ctx, id, "reject", domain.ActionRejectPayment, app.RejectPaymentRequestRequest{Reason: reason})
}

func (c *Client) WithdrawPaymentRequest(ctx context.Context, id string) (*app.PaymentRequestView, error) {
	return c.paymentTransition(ctx, id, "withdraw", domain.ActionWithdrawPayment, nil)
}

// MarkPaid records a settlement. Only a system token is accepted.
func (c *Client) MarkPaid(ctx context.Context, id, reference string) (*app.PaymentRequestView, error) {
	return c.paymentTransition(ctx, id, "paid", domain.ActionSettlePayment, app.SettlePaymentRequest{Reference: reference})
}

func (c *Client) paymentTransition(ctx context.Context, id, verb string, action domain.Action, body any) (*app.PaymentRequestView, error) {
	version := 0
	if v, ok := c.cache.PaymentRequest(id); ok {
		version = v.Version
		target := domain.Target{Entity: domain.EntityPaymentRequest, Status: string(v.Status)}
		if err := c.permit(v.ContractID, action, target); err != nil {
			return nil, err
		}
	}
	var out app.PaymentRequestView
	if err := c.do(ctx, http.MethodPost, paymentPath(id)+"/"+verb, version, body, &out); err != nil {
		return nil, c.reconcile(id, err)
	}
	c.cache.PutPaymentRequest(out)
	return &out, nil
}
