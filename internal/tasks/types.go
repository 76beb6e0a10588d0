package tasks

import "time"

// Task Types
const (
	TaskTypeCampaignSend      = "campaign:send"
	TaskTypeCampaignDispatch  = "campaign:dispatch"
	TaskTypeSubscriberWelcome = "subscriber:welcome"
	TaskTypeTokenPrune        = "token:prune"
)

// Task Queues
const (
	QueueCritical = "critical" // campaign delivery
	QueueDefault  = "default"  // welcome emails, dispatch
	QueueLow      = "low"      // cleanup
)

// Task Timeouts
const (
	TimeoutShort  = 1 * time.Minute
	TimeoutMedium = 5 * time.Minute
	TimeoutLong   = 30 * time.Minute
)

// Task Retry Settings
const (
	RetryMax     = 5
	RetryDefault = 3
	RetryMin     = 1
)

// Task Payloads
type CampaignSendTask struct {
	CampaignID string `json:"campaign_id"`
}

type WelcomeTask struct {
	SubscriberID string `json:"subscriber_id"`
}
