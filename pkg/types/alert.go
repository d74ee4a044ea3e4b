package types

import "time"

// AlertChannel is a notification transport.
type AlertChannel string

const (
	ChannelSMS   AlertChannel = "sms"
	ChannelVoice AlertChannel = "voice"
	ChannelEmail AlertChannel = "email"
	ChannelPush  AlertChannel = "push"
)

// AlertPriority orders alerts for rate limiting and overload handling.
type AlertPriority string

const (
	PriorityLow      AlertPriority = "low"
	PriorityMedium   AlertPriority = "medium"
	PriorityHigh     AlertPriority = "high"
	PriorityCritical AlertPriority = "critical"
)

// PriorityRank gives a total order for queue reordering under overload:
// higher rank services first.
func PriorityRank(p AlertPriority) int {
	switch p {
	case PriorityCritical:
		return 3
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	default:
		return 0
	}
}

// DeliveryStatus is the outcome of dispatching an Alert.
type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "pending"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryFailed    DeliveryStatus = "failed"
	DeliveryDropped   DeliveryStatus = "dropped"
)

// Alert is a single notification destined for one recipient.
type Alert struct {
	ID             string         `json:"id"`
	DedupKey       string         `json:"dedup_key"`
	RecipientID    int64          `json:"recipient_id"`
	Channel        AlertChannel   `json:"channel"`
	Priority       AlertPriority  `json:"priority"`
	Payload        string         `json:"payload"`
	CreatedAt      time.Time      `json:"created_at"`
	DeliveryStatus DeliveryStatus `json:"delivery_status"`
	Attempts       int            `json:"attempts"`
	NextAllowedTime *time.Time    `json:"next_allowed_time,omitempty"`
}

// RecipientPreference is the channel a recipient prefers. Channel
// availability for fallback is not part of it.
type RecipientPreference struct {
	RecipientID      int64        `json:"recipient_id"`
	PreferredChannel AlertChannel `json:"preferred_channel"`
}

// ChannelState records whether a transport channel is currently usable.
type ChannelState struct {
	Channel     AlertChannel `json:"channel"`
	Available   bool         `json:"available"`
}

// DispatchReport summarizes the outcome of one Dispatch call.
type DispatchReport struct {
	Delivered []Alert `json:"delivered"`
	Dropped   []Alert `json:"dropped"`
	Deferred  []Alert `json:"deferred"`
	Failed    []Alert `json:"failed"`
}
