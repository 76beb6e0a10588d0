package models

import (
	"time"

	"gorm.io/datatypes"
)

type Newsletter struct {
	Base
	UserID      string       `gorm:"type:uuid;not null;index" json:"userId"`
	Name        string       `gorm:"not null" json:"name"`
	Description string       `json:"description"`
	Subscribers []Subscriber `gorm:"foreignKey:NewsletterID;constraint:OnDelete:CASCADE" json:"subscribers,omitempty"`
	Campaigns   []Campaign   `gorm:"foreignKey:NewsletterID;constraint:OnDelete:CASCADE" json:"campaigns,omitempty"`
}

type Subscriber struct {
	Base
	NewsletterID   string           `gorm:"type:uuid;not null;uniqueIndex:idx_subscribers_newsletter_email" json:"newsletterId"`
	Newsletter     *Newsletter      `json:"newsletter,omitempty"`
	Email          string           `gorm:"not null;uniqueIndex:idx_subscribers_newsletter_email" json:"email"`
	Name           string           `json:"name"`
	Status         SubscriberStatus `gorm:"not null;default:'ACTIVE';index" json:"status"`
	Metadata       datatypes.JSON   `gorm:"type:jsonb" json:"metadata,omitempty"`
	SubscribedAt   *time.Time       `json:"subscribedAt"`
	UnsubscribedAt *time.Time       `json:"unsubscribedAt"`
}

func (s *Subscriber) IsActive() bool {
	return s.Status == SubscriberStatusActive && s.UnsubscribedAt == nil
}

// Subscribe marks the subscriber active from at.
func (s *Subscriber) Subscribe(at time.Time) {
	s.Status = SubscriberStatusActive
	s.SubscribedAt = &at
	s.UnsubscribedAt = nil
}

// Unsubscribe marks the subscriber inactive from at. SubscribedAt is kept.
func (s *Subscriber) Unsubscribe(at time.Time) {
	s.Status = SubscriberStatusUnsubscribed
	s.UnsubscribedAt = &at
}

// Campaign is a single send of a subject and body to a newsletter's
// active subscribers.
type Campaign struct {
	Base
	NewsletterID string         `gorm:"type:uuid;not null;index" json:"newsletterId"`
	Newsletter   *Newsletter    `json:"newsletter,omitempty"`
	Subject      string         `gorm:"not null" json:"subject"`
	Body         string         `gorm:"type:text;not null" json:"body"`
	Status       CampaignStatus `gorm:"not null;default:'DRAFT';index" json:"status"`
	ScheduledAt  *time.Time     `gorm:"index" json:"scheduledAt"`
	SentAt       *time.Time     `json:"sentAt"`
	Recipients   int            `gorm:"not null;default:0" json:"recipients"`
	Failures     int            `gorm:"not null;default:0" json:"failures"`
	ArchiveKey   string         `json:"archiveKey,omitempty"`
	Error        string         `json:"error,omitempty"`
}

// Editable reports whether the campaign may be changed or removed. A
// campaign that is queued, being delivered or already sent is locked.
func (c *Campaign) Editable() bool {
	switch c.Status {
	case CampaignStatusQueued, CampaignStatusSending, CampaignStatusSent:
		return false
	}
	return c.SentAt == nil
}

// Sendable reports whether the campaign may be queued for delivery.
func (c *Campaign) Sendable() bool {
	switch c.Status {
	case CampaignStatusDraft, CampaignStatusScheduled, CampaignStatusFailed:
		return c.SentAt == nil
	}
	return false
}

// SendableStatuses lists the states a campaign can be claimed from.
var SendableStatuses = []CampaignStatus{
	CampaignStatusDraft,
	CampaignStatusScheduled,
	CampaignStatusFailed,
}
