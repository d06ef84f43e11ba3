package client

import (
	"sync"

	"github.com/matic113/freelance-platform-sub003/internal/app"
	"github.com/matic113/freelance-platform-sub003/internal/events"
)

// Cache holds the last authoritative snapshot of each entity. Entries are
// only ever replaced whole, by a server response or a pushed event.
type Cache struct {
	mu         sync.RWMutex
	contracts  map[string]app.ContractView
	milestones map[string]app.MilestoneView
	payments   map[string]app.PaymentRequestView
}

func NewCache() *Cache {
	return &Cache{
		contracts:  make(map[string]app.ContractView),
		milestones: make(map[string]app.MilestoneView),
		payments:   make(map[string]app.PaymentRequestView),
	}
}

func (c *Cache) Contract(id string) (app.ContractView, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.contracts[id]
	return v, ok
}

func (c *Cache) Milestone(id string) (app.MilestoneView, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.milestones[id]
	return v, ok
}

func (c *Cache) PaymentRequest(id string) (app.PaymentRequestView, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.payments[id]
	return v, ok
}

func (c *Cache) PutContract(v app.ContractView) {
	c.mu.Lock()
	c.contracts[v.ID] = v
	c.mu.Unlock()
}

func (c *Cache) PutMilestone(v app.MilestoneView) {
	c.mu.Lock()
	c.milestones[v.ID] = v
	c.mu.Unlock()
}

func (c *Cache) PutPaymentRequest(v app.PaymentRequestView) {
	c.mu.Lock()
	c.payments[v.ID] = v
	c.mu.Unlock()
}

// PutDetail stores every entity in a contract detail response.
func (c *Cache) PutDetail(d *app.ContractDetail) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.contracts[d.Contract.ID] = d.Contract
	for _, m := range d.Milestones {
		c.milestones[m.ID] = m
	}
	for _, p := range d.PaymentRequests {
		c.payments[p.ID] = p
	}
}

// Evict drops id from every entity map so the next read goes to the server.
func (c *Cache) Evict(id string) {
	c.mu.Lock()
	delete(c.contracts, id)
	delete(c.milestones, id)
	delete(c.payments, id)
	c.mu.Unlock()
}

// Apply replaces the entities carried by a pushed event.
func (c *Cache) Apply(e events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e.Contract != nil {
		c.contracts[e.Contract.ID] = *e.Contract
	}
	if e.Type == events.MilestoneDeleted {
		delete(c.milestones, e.MilestoneID)
	} else if e.Milestone != nil {
		c.milestones[e.Milestone.ID] = *e.Milestone
	}
	if e.PaymentRequest != nil {
		c.payments[e.PaymentRequest.ID] = *e.PaymentRequest
	}
}

// Len returns the number of cached entities.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.contracts) + len(c.milestones) + len(c.payments)
}
