// Package gateway hands approved payment requests to the payout provider and
// reports settlements back.
package gateway

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PayoutOrder asks the provider to move an approved amount to the freelancer.
type PayoutOrder struct {
	PaymentRequestID string          `json:"paymentRequestId"`
	ContractID       string          `json:"contractId"`
	FreelancerID     string          `json:"freelancerId"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
}

// Settlement confirms that funds for a payment request were released.
type Settlement struct {
	PaymentRequestID string    `json:"paymentRequestId"`
	Reference        string    `json:"reference"`
	SettledAt        time.Time `json:"settledAt"`
}

// SettlementHandler applies a settlement. It is called from provider goroutines.
type SettlementHandler func(ctx context.Context, s Settlement) error

// Gateway accepts payout orders. Dispatch returns once the order is handed
// off; settlement arrives later through the SettlementHandler.
type Gateway interface {
	Dispatch(ctx context.Context, order PayoutOrder) error
}

// Sandbox settles every order after a fixed delay. It stands in for a real
// provider in development and tests.
type Sandbox struct {
	delay   time.Duration
	handler SettlementHandler
	logger  *slog.Logger

	mu      sync.Mutex
	pending map[string]struct{}
	wg      sync.WaitGroup
}

func NewSandbox(delay time.Duration, handler SettlementHandler, logger *slog.Logger) *Sandbox {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sandbox{
		delay:   delay,
		handler: handler,
		logger:  logger,
		pending: make(map[string]struct{}),
	}
}

// SetHandler replaces the settlement handler. Call before the first Dispatch.
func (s *Sandbox) SetHandler(h SettlementHandler) {
	s.mu.Lock()
	s.handler = h
	s.mu.Unlock()
}

// Dispatch schedules a settlement. A second order for a request that is
// still in flight is ignored.
func (s *Sandbox) Dispatch(ctx context.Context, order PayoutOrder) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	if _, ok := s.pending[order.PaymentRequestID]; ok {
		s.mu.Unlock()
		return nil
	}
	s.pending[order.PaymentRequestID] = struct{}{}
	handler := s.handler
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.pending, order.PaymentRequestID)
			s.mu.Unlock()
		}()

		if s.delay > 0 {
			time.Sleep(s.delay)
		}
		if handler == nil {
			return
		}
		settlement := Settlement{
			PaymentRequestID: order.PaymentRequestID,
			Reference:        "sandbox-" + uuid.New().String()[:8],
			SettledAt:        time.Now().UTC().Truncate(time.Second),
		}
		if err := handler(context.Background(), settlement); err != nil {
			s.logger.Warn("sandbox settlement failed",
				"payment_request_id", order.PaymentRequestID,
				"error", err,
			)
			return
		}
		s.logger.Info("sandbox settlement applied",
			"payment_request_id", order.PaymentRequestID,
			"reference", settlement.Reference,
		)
	}()
	return nil
}

// Wait blocks until every scheduled settlement has run.
func (s *Sandbox) Wait() {
	s.wg.Wait()
}
