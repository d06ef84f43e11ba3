package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matic113/freelance-platform-sub003/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDispatcher struct {
	calls     atomic.Int32
	olderThan time.Duration
	sent      int
	err       error
}

func (f *fakeDispatcher) DispatchPayouts(_ context.Context, olderThan time.Duration) (int, error) {
	f.calls.Add(1)
	f.olderThan = olderThan
	return f.sent, f.err
}

func TestRunPayoutSweep_RecordsOutcome(t *testing.T) {
	d := &fakeDispatcher{sent: 2, err: errors.Join(errors.New("a"), errors.New("b"), errors.New("c"))}
	s := NewScheduler(d, 10*time.Minute, nil)

	sentBefore := testutil.ToFloat64(metrics.PayoutsDispatched.WithLabelValues("sent"))
	failedBefore := testutil.ToFloat64(metrics.PayoutsDispatched.WithLabelValues("failed"))

	sent, failed := s.RunPayoutSweep(context.Background())
	assert.Equal(t, 2, sent)
	assert.Equal(t, 3, failed)
	assert.Equal(t, 10*time.Minute, d.olderThan)

	assert.Equal(t, sentBefore+2, testutil.ToFloat64(metrics.PayoutsDispatched.WithLabelValues("sent")))
	assert.Equal(t, failedBefore+3, testutil.ToFloat64(metrics.PayoutsDispatched.WithLabelValues("failed")))
}

func TestRunPayoutSweep_SingleError(t *testing.T) {
	d := &fakeDispatcher{err: errors.New("listing failed")}
	_, failed := NewScheduler(d, time.Minute, nil).RunPayoutSweep(context.Background())
	assert.Equal(t, 1, failed)
}

func TestStart_RejectsBadSpec(t *testing.T) {
	s := NewScheduler(&fakeDispatcher{}, time.Minute, nil)
	assert.Error(t, s.Start(context.Background(), "not a schedule"))
}

func TestStart_RunsSweepOnSchedule(t *testing.T) {
	d := &fakeDispatcher{}
	s := NewScheduler(d, time.Minute, nil)
	require.NoError(t, s.Start(context.Background(), "@every 1s"))
	defer s.Stop()

	require.Eventually(t, func() bool { return d.calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}
