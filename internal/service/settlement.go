package service

import (
	"context"

	"github.com/matic113/freelance-platform-sub003/internal/domain"
	"github.com/matic113/freelance-platform-sub003/internal/gateway"
)

// SettlementHandler applies gateway settlements as the system actor.
func SettlementHandler(payments PaymentService) gateway.SettlementHandler {
	return func(ctx context.Context, s gateway.Settlement) error {
		_, err := payments.MarkPaid(ctx, domain.SystemActor, s.PaymentRequestID, s.Reference)
		return err
	}
}
