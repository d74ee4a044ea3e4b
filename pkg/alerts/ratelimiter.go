package alerts

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/khryptorgraphics/burnwise/pkg/types"
)

// nonCriticalRatePerMinute is R from spec.md §4.5: at most 10
// non-critical alerts per rolling minute per process. Critical alerts
// bypass the counter entirely but are still recorded.
const nonCriticalRatePerMinute = 10

// RateLimiter gates non-critical alert dispatch, grounded on the
// teacher's per-key rate.Limiter construction in
// pkg/api/middleware.go.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter builds a RateLimiter allowing nonCriticalRatePerMinute
// non-critical sends per rolling minute, with a burst equal to the
// same figure so a cold process isn't immediately throttled.
func NewRateLimiter() *RateLimiter {
	perSecond := rate.Limit(float64(nonCriticalRatePerMinute) / 60.0)
	return &RateLimiter{limiter: rate.NewLimiter(perSecond, nonCriticalRatePerMinute)}
}

// Allow reports whether an alert of the given priority may proceed
// now. Critical alerts always pass without consuming the token
// bucket.
func (r *RateLimiter) Allow(priority types.AlertPriority) bool {
	if priority == types.PriorityCritical {
		return true
	}
	return r.limiter.Allow()
}

// NextAllowed returns the time at which the next non-critical alert
// would be allowed, for populating Alert.NextAllowedTime on drop.
func (r *RateLimiter) NextAllowed() time.Time {
	reservation := r.limiter.Reserve()
	delay := reservation.Delay()
	reservation.Cancel()
	return time.Now().Add(delay)
}
