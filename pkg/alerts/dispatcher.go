package alerts

import (
	"context"
	"log/slog"
	"sort"

	"github.com/khryptorgraphics/burnwise/pkg/types"
)

// overloadQueueDepth is the pending-alert count at or above which the
// dispatcher reorders by priority and defers everything below
// high-priority, per spec.md §4.5's "stated overload" trigger. Not
// numerically specified by spec.md; chosen as a multiple of the
// non-critical rate limit so overload means "more queued than the
// rate limiter could drain in a few seconds."
const overloadQueueDepth = 50

// Dispatcher implements the dispatch(alerts, recipients, channelStates)
// contract (spec.md §4.5).
type Dispatcher struct {
	transport   Transport
	rateLimiter *RateLimiter
	idempotency *Idempotency
	breakers    *channelBreakers
	logger      *slog.Logger
}

// New builds a Dispatcher around transport, with its own rate
// limiter, idempotency tracker, and per-channel circuit breakers.
func New(transport Transport, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		transport:   transport,
		rateLimiter: NewRateLimiter(),
		idempotency: NewIdempotency(),
		breakers:    newChannelBreakers(logger),
		logger:      logger,
	}
}

// Dispatch sends each alert over its resolved channel, applying rate
// limiting, overload-triggered priority reordering, and idempotency
// suppression, per spec.md §4.5.
func (d *Dispatcher) Dispatch(ctx context.Context, alertsIn []types.Alert, recipients map[int64]types.RecipientPreference, channelStates map[types.AlertChannel]bool) types.DispatchReport {
	report := types.DispatchReport{}

	ordered := make([]types.Alert, len(alertsIn))
	copy(ordered, alertsIn)
	sort.SliceStable(ordered, func(i, j int) bool {
		return types.PriorityRank(ordered[i].Priority) > types.PriorityRank(ordered[j].Priority)
	})

	overloaded := len(ordered) >= overloadQueueDepth

	for _, alert := range ordered {
		if d.idempotency.CheckAndMark(alert.DedupKey) {
			continue // already delivered for this dedup key; no-op, not even recorded as dropped
		}

		if overloaded && types.PriorityRank(alert.Priority) < types.PriorityRank(types.PriorityHigh) {
			alert.DeliveryStatus = types.DeliveryPending
			report.Deferred = append(report.Deferred, alert)
			continue
		}

		if !d.rateLimiter.Allow(alert.Priority) {
			next := d.rateLimiter.NextAllowed()
			alert.DeliveryStatus = types.DeliveryDropped
			alert.NextAllowedTime = &next
			report.Dropped = append(report.Dropped, alert)
			continue
		}

		pref, hasPref := recipients[alert.RecipientID]
		preferred := alert.Channel
		if hasPref {
			preferred = pref.PreferredChannel
		}
		channel, ok := resolveChannel(preferred, channelStates)
		if !ok {
			alert.DeliveryStatus = types.DeliveryFailed
			alert.Attempts++
			report.Failed = append(report.Failed, alert)
			continue
		}
		alert.Channel = channel

		alert.Attempts++
		if err := d.breakers.send(ctx, d.transport, alert, channel); err != nil {
			d.logger.Warn("alert delivery failed", "alert_id", alert.ID, "channel", channel, "error", err)
			alert.DeliveryStatus = types.DeliveryFailed
			report.Failed = append(report.Failed, alert)
			continue
		}

		alert.DeliveryStatus = types.DeliveryDelivered
		report.Delivered = append(report.Delivered, alert)
	}

	return report
}
