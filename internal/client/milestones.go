package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/matic113/freelance-platform-sub003/internal/app"
	"github.com/matic113/freelance-platform-sub003/internal/domain"
)

func milestonePath(contractID, id string) string {
	return contractPath(contractID) + "/milestones/" + url.PathEscape(id)
}

func (c *Client) ListMilestones(ctx context.Context, contractID string) ([]app.MilestoneView, error) {
	var out []app.MilestoneView
	if err := c.do(ctx, http.MethodGet, contractPath(contractID)+"/milestones", 0, nil, &out); err != nil {
		return nil, err
	}
	for _, v := range out {
		c.cache.PutMilestone(v)
	}
	return out, nil
}

func (c *Client) GetMilestone(ctx context.Context, contractID, id string) (*app.MilestoneView, error) {
	var out app.MilestoneView
	if err := c.do(ctx, http.MethodGet, milestonePath(contractID, id), 0, nil, &out); err != nil {
		return nil, c.reconcile(id, err)
	}
	c.cache.PutMilestone(out)
	return &out, nil
}

func (c *Client) CreateMilestone(ctx context.Context, contractID string, req app.CreateMilestoneRequest) (*app.MilestoneView, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := c.permit(contractID, domain.ActionAddMilestone); err != nil {
		return nil, err
	}
	var out app.MilestoneView
	if err := c.do(ctx, http.MethodPost, contractPath(contractID)+"/milestones", 0, req, &out); err != nil {
		return nil, c.reconcile(contractID, err)
	}
	c.cache.PutMilestone(out)
	return &out, nil
}

// UpdateMilestone sends a partial edit guarded by the cached version.
func (c *Client) UpdateMilestone(ctx context.Context, contractID, id string, req app.UpdateMilestoneRequest) (*app.MilestoneView, error) {
	if _, err := req.Patch(); err != nil {
		return nil, err
	}
	if err := c.permit(contractID, domain.ActionEditMilestone, c.milestoneTargets(id)...); err != nil {
		return nil, err
	}
	var out app.MilestoneView
	if err := c.do(ctx, http.MethodPatch, milestonePath(contractID, id), c.milestoneVersion(id), req, &out); err != nil {
		return nil, c.reconcile(id, err)
	}
	c.cache.PutMilestone(out)
	return &out, nil
}

func (c *Client) DeleteMilestone(ctx context.Context, contractID, id string) error {
	if err := c.permit(contractID, domain.ActionDeleteMilestone, c.milestoneTargets(id)...); err != nil {
		return err
	}
	if err := c.do(ctx, http.MethodDelete, milestonePath(contractID, id), c.milestoneVersion(id), nil, nil); err != nil {
		return c.reconcile(id, err)
	}
	c.cache.Evict(id)
	return nil
}

// UpdateMilestoneStatus advances a milestone; only in_progress and
// completed are reachable by a caller.
func (c *Client) UpdateMilestoneStatus(ctx context.Context, contractID, id string, status domain.MilestoneStatus) (*app.MilestoneView, error) {
	if _, err := domain.ParseMilestoneStatus(string(status)); err != nil {
		return nil, err
	}
	switch status {
	case domain.MilestoneInProgress:
		if err := c.permit(contractID, domain.ActionStartMilestone, c.milestoneTargets(id)...); err != nil {
			return nil, err
		}
	case domain.MilestoneCompleted:
		if err := c.permit(contractID, domain.ActionCompleteMilestone, c.milestoneTargets(id)...); err != nil {
			return nil, err
		}
	}
	var out app.MilestoneView
	body := app.UpdateMilestoneStatusRequest{Status: status}
	if err := c.do(ctx, http.MethodPut, milestonePath(contractID, id)+"/status", c.milestoneVersion(id), body, &out); err != nil {
		return nil, c.reconcile(id, err)
	}
	c.cache.PutMilestone(out)
	return &out, nil
}
