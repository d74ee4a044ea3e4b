// Package alerts implements the Alert Dispatcher stage (spec.md §4.5):
// channel selection with fallback, rate limiting, priority-ordered
// overload handling, and dedup-key idempotency.
package alerts

import (
	"context"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/khryptorgraphics/burnwise/pkg/types"
)

// Transport delivers one Alert over its designated channel. Production
// wiring injects real SMS/voice/email/push clients; tests inject a
// deterministic fake.
type Transport interface {
	Send(ctx context.Context, alert types.Alert) error
}

// fallbackChannel is the fixed substitution map from spec.md §4.5,
// applied when a recipient's preferred channel is marked unavailable.
var fallbackChannel = map[types.AlertChannel]types.AlertChannel{
	types.ChannelSMS:   types.ChannelVoice,
	types.ChannelEmail: types.ChannelPush,
	types.ChannelVoice: types.ChannelPush,
	types.ChannelPush:  types.ChannelSMS,
}

// resolveChannel picks the recipient's preferred channel, or its
// single fallback if the preferred channel is unavailable. If the
// fallback is also unavailable, resolveChannel gives up after one hop
// per spec.md §4.5 ("substitute via the fallback map"): it does not
// chase the fallback chain indefinitely.
func resolveChannel(preferred types.AlertChannel, availability map[types.AlertChannel]bool) (types.AlertChannel, bool) {
	if availability[preferred] {
		return preferred, true
	}
	if fb, ok := fallbackChannel[preferred]; ok && availability[fb] {
		return fb, true
	}
	return "", false
}

// channelBreakers holds one circuit breaker per transport channel,
// guarding the per-channel Send call (spec.md §5: 5 failures opens for
// 60s, one half-open probe). Grounded on the same gobreaker wiring
// pattern as the weather provider's breaker.
type channelBreakers struct {
	breakers map[types.AlertChannel]*gobreaker.CircuitBreaker
}

func newChannelBreakers(logger *slog.Logger) *channelBreakers {
	cb := &channelBreakers{breakers: make(map[types.AlertChannel]*gobreaker.CircuitBreaker)}
	for _, ch := range []types.AlertChannel{types.ChannelSMS, types.ChannelVoice, types.ChannelEmail, types.ChannelPush} {
		ch := ch
		cb.breakers[ch] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        string(ch),
			MaxRequests: 1,
			Timeout:     60 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("alert channel breaker state change", "channel", name, "from", from.String(), "to", to.String())
			},
		})
	}
	return cb
}

// send executes transport.Send through the channel's breaker, with
// one retry using exponential backoff (200ms -> 2s) per spec.md §5.
func (cb *channelBreakers) send(ctx context.Context, transport Transport, alert types.Alert, channel types.AlertChannel) error {
	breaker := cb.breakers[channel]
	attempt := func() error {
		_, err := breaker.Execute(func() (interface{}, error) {
			return nil, transport.Send(ctx, alert)
		})
		return err
	}

	err := attempt()
	if err == nil {
		return nil
	}

	select {
	case <-time.After(200 * time.Millisecond):
	case <-ctx.Done():
		return ctx.Err()
	}
	return attempt()
}
