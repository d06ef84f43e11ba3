package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/matic113/freelance-platform-sub003/internal/app"
	"github.com/matic113/freelance-platform-sub003/internal/domain"
)

// Type names a lifecycle change pushed to subscribers.
type Type string

const (
	ContractUpdated       Type = "contract.updated"
	MilestoneCreated      Type = "milestone.created"
	MilestoneUpdated      Type = "milestone.updated"
	MilestoneDeleted      Type = "milestone.deleted"
	PaymentRequestCreated Type = "payment_request.created"
	PaymentRequestUpdated Type = "payment_request.updated"
)

// Event carries the full authoritative entity after a committed change.
// Receivers replace whatever they hold for that entity; they never merge.
type Event struct {
	ID             string                  `json:"id"`
	Type           Type                    `json:"type"`
	ContractID     string                  `json:"contractId"`
	Parties        []string                `json:"parties"`
	ActorID        string                  `json:"actorId,omitempty"`
	Contract       *app.ContractView       `json:"contract,omitempty"`
	Milestone      *app.MilestoneView      `json:"milestone,omitempty"`
	MilestoneID    string                  `json:"milestoneId,omitempty"`
	PaymentRequest *app.PaymentRequestView `json:"paymentRequest,omitempty"`
	Origin         string                  `json:"origin,omitempty"`
	OccurredAt     time.Time               `json:"occurredAt"`
}

// Publisher fans committed lifecycle events out to live subscribers.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }

// MultiPublisher publishes to each publisher in turn and returns the first error.
type MultiPublisher []Publisher

func (m MultiPublisher) Publish(ctx context.Context, e Event) error {
	var first error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, e); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func newEvent(t Type, c *domain.Contract, actor domain.Actor, now time.Time) Event {
	return Event{
		ID:         uuid.New().String(),
		Type:       t,
		ContractID: c.ID,
		Parties:    []string{c.ClientID, c.FreelancerID},
		ActorID:    actor.UserID,
		OccurredAt: now,
	}
}

func ForContract(c *domain.Contract, actor domain.Actor, now time.Time) Event {
	e := newEvent(ContractUpdated, c, actor, now)
	v := app.NewContractView(c)
	e.Contract = &v
	return e
}

func ForMilestone(t Type, c *domain.Contract, m *domain.Milestone, actor domain.Actor, now time.Time) Event {
	e := newEvent(t, c, actor, now)
	v := app.NewMilestoneView(m)
	e.Milestone = &v
	e.MilestoneID = m.ID
	return e
}

func ForMilestoneDeleted(c *domain.Contract, milestoneID string, actor domain.Actor, now time.Time) Event {
	e := newEvent(MilestoneDeleted, c, actor, now)
	e.MilestoneID = milestoneID
	return e
}

func ForPaymentRequest(t Type, c *domain.Contract, p *domain.PaymentRequest, actor domain.Actor, now time.Time) Event {
	e := newEvent(t, c, actor, now)
	v := app.NewPaymentRequestView(p)
	e.PaymentRequest = &v
	return e
}
