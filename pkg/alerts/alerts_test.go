package alerts

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khryptorgraphics/burnwise/pkg/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeTransport struct {
	sent    int32
	failFor map[types.AlertChannel]bool
}

func (f *fakeTransport) Send(ctx context.Context, alert types.Alert) error {
	atomic.AddInt32(&f.sent, 1)
	if f.failFor != nil && f.failFor[alert.Channel] {
		return errors.New("transport failure")
	}
	return nil
}

func allAvailable() map[types.AlertChannel]bool {
	return map[types.AlertChannel]bool{
		types.ChannelSMS: true, types.ChannelVoice: true,
		types.ChannelEmail: true, types.ChannelPush: true,
	}
}

func TestResolveChannelPrefersAvailablePrimary(t *testing.T) {
	ch, ok := resolveChannel(types.ChannelSMS, allAvailable())
	require.True(t, ok)
	assert.Equal(t, types.ChannelSMS, ch)
}

func TestResolveChannelFallsBackOnUnavailable(t *testing.T) {
	states := allAvailable()
	states[types.ChannelSMS] = false
	ch, ok := resolveChannel(types.ChannelSMS, states)
	require.True(t, ok)
	assert.Equal(t, types.ChannelVoice, ch)
}

func TestResolveChannelFailsWhenFallbackAlsoUnavailable(t *testing.T) {
	states := allAvailable()
	states[types.ChannelSMS] = false
	states[types.ChannelVoice] = false
	_, ok := resolveChannel(types.ChannelSMS, states)
	assert.False(t, ok)
}

func TestDispatchDeliversWhenChannelAvailable(t *testing.T) {
	transport := &fakeTransport{}
	d := New(transport, discardLogger())
	alert := types.Alert{ID: "a1", DedupKey: "k1", RecipientID: 1, Channel: types.ChannelSMS, Priority: types.PriorityHigh}
	report := d.Dispatch(context.Background(), []types.Alert{alert}, nil, allAvailable())
	require.Len(t, report.Delivered, 1)
	assert.Equal(t, types.DeliveryDelivered, report.Delivered[0].DeliveryStatus)
}

func TestDispatchIdempotentOnRepeatedDedupKey(t *testing.T) {
	transport := &fakeTransport{}
	d := New(transport, discardLogger())
	alert := types.Alert{ID: "a1", DedupKey: "dup-1", RecipientID: 1, Channel: types.ChannelSMS, Priority: types.PriorityHigh}

	first := d.Dispatch(context.Background(), []types.Alert{alert}, nil, allAvailable())
	require.Len(t, first.Delivered, 1)

	second := d.Dispatch(context.Background(), []types.Alert{alert}, nil, allAvailable())
	assert.Empty(t, second.Delivered)
	assert.Empty(t, second.Dropped)
	assert.Empty(t, second.Failed)
	assert.Equal(t, int32(1), atomic.LoadInt32(&transport.sent))
}

func TestDispatchRateLimitsNonCriticalAlerts(t *testing.T) {
	transport := &fakeTransport{}
	d := New(transport, discardLogger())

	var batch []types.Alert
	for i := 0; i < 20; i++ {
		batch = append(batch, types.Alert{
			ID: string(rune('a' + i)), DedupKey: string(rune('a' + i)),
			RecipientID: 1, Channel: types.ChannelSMS, Priority: types.PriorityLow,
		})
	}
	report := d.Dispatch(context.Background(), batch, nil, allAvailable())
	assert.NotEmpty(t, report.Dropped)
	for _, a := range report.Dropped {
		assert.Equal(t, types.DeliveryDropped, a.DeliveryStatus)
		assert.NotNil(t, a.NextAllowedTime)
	}
}

func TestDispatchCriticalBypassesRateLimit(t *testing.T) {
	transport := &fakeTransport{}
	d := New(transport, discardLogger())

	var batch []types.Alert
	for i := 0; i < 20; i++ {
		batch = append(batch, types.Alert{
			ID: string(rune('a' + i)), DedupKey: string(rune('a' + i)),
			RecipientID: 1, Channel: types.ChannelSMS, Priority: types.PriorityCritical,
		})
	}
	report := d.Dispatch(context.Background(), batch, nil, allAvailable())
	assert.Empty(t, report.Dropped)
	assert.Len(t, report.Delivered, 20)
}

func TestDispatchOverloadDefersLowPriority(t *testing.T) {
	transport := &fakeTransport{}
	d := New(transport, discardLogger())

	var batch []types.Alert
	for i := 0; i < overloadQueueDepth; i++ {
		batch = append(batch, types.Alert{
			ID: string(rune(i)), DedupKey: string(rune(i)) + "-key",
			RecipientID: 1, Channel: types.ChannelSMS, Priority: types.PriorityLow,
		})
	}
	// inject a handful of critical alerts so they're prioritized
	for i := 0; i < 3; i++ {
		batch = append(batch, types.Alert{
			ID: "crit" + string(rune(i)), DedupKey: "crit-key" + string(rune(i)),
			RecipientID: 1, Channel: types.ChannelSMS, Priority: types.PriorityCritical,
		})
	}

	report := d.Dispatch(context.Background(), batch, nil, allAvailable())
	assert.NotEmpty(t, report.Deferred)
	for _, a := range report.Deferred {
		assert.Less(t, types.PriorityRank(a.Priority), types.PriorityRank(types.PriorityHigh))
	}
}

func TestIdempotencyCheckAndMarkSuppressesDuplicates(t *testing.T) {
	idem := NewIdempotency()
	assert.False(t, idem.CheckAndMark("x"))
	assert.True(t, idem.CheckAndMark("x"))
}

func TestRateLimiterCriticalAlwaysAllowed(t *testing.T) {
	r := NewRateLimiter()
	for i := 0; i < 50; i++ {
		assert.True(t, r.Allow(types.PriorityCritical))
	}
}

func TestRateLimiterNonCriticalEventuallyThrottles(t *testing.T) {
	r := NewRateLimiter()
	allowed := 0
	for i := 0; i < 30; i++ {
		if r.Allow(types.PriorityMedium) {
			allowed++
		}
	}
	assert.Less(t, allowed, 30)
}

func TestTransportSendRetriesOnceOnFailure(t *testing.T) {
	transport := &fakeTransport{failFor: map[types.AlertChannel]bool{types.ChannelSMS: true}}
	cb := newChannelBreakers(discardLogger())
	start := time.Now()
	err := cb.send(context.Background(), transport, types.Alert{ID: "r1", Channel: types.ChannelSMS}, types.ChannelSMS)
	require.Error(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&transport.sent))
	assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)
}
