package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/matic113/freelance-platform-sub003/internal/domain"
	"github.com/matic113/freelance-platform-sub003/internal/events"
	"github.com/matic113/freelance-platform-sub003/internal/service"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestUseCaseObserver_CountsByOutcome(t *testing.T) {
	obs := UseCaseObserver{}
	ctx := context.Background()

	okBefore := testutil.ToFloat64(UseCaseTotal.WithLabelValues("metrics-test", "ok"))
	conflictBefore := testutil.ToFloat64(UseCaseTotal.WithLabelValues("metrics-test", "conflict"))

	obs.ObserveUseCase(ctx, service.UseCaseEvent{Name: "metrics-test", Success: true, Duration: time.Millisecond})
	obs.ObserveUseCase(ctx, service.UseCaseEvent{Name: "metrics-test", Err: domain.ErrConflict, Duration: time.Millisecond})
	obs.ObserveUseCase(ctx, service.UseCaseEvent{Name: "metrics-test", Success: true})

	assert.Equal(t, okBefore+2, testutil.ToFloat64(UseCaseTotal.WithLabelValues("metrics-test", "ok")))
	assert.Equal(t, conflictBefore+1, testutil.ToFloat64(UseCaseTotal.WithLabelValues("metrics-test", "conflict")))
}

func TestRecordPayoutSweep(t *testing.T) {
	sent := testutil.ToFloat64(PayoutsDispatched.WithLabelValues("sent"))
	failed := testutil.ToFloat64(PayoutsDispatched.WithLabelValues("failed"))

	RecordPayoutSweep(3, 1)

	assert.Equal(t, sent+3, testutil.ToFloat64(PayoutsDispatched.WithLabelValues("sent")))
	assert.Equal(t, failed+1, testutil.ToFloat64(PayoutsDispatched.WithLabelValues("failed")))
}

func TestEventPublisher_CountsByType(t *testing.T) {
	before := testutil.ToFloat64(EventsPublished.WithLabelValues(string(events.MilestoneDeleted)))

	err := EventPublisher{}.Publish(context.Background(), events.Event{Type: events.MilestoneDeleted})

	assert.NoError(t, err)
	assert.Equal(t, before+1, testutil.ToFloat64(EventsPublished.WithLabelValues(string(events.MilestoneDeleted))))
}
