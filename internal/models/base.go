package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base contains common columns for all tables
type Base struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate will set a UUID rather than numeric ID
func (base *Base) BeforeCreate(tx *gorm.DB) error {
	if base.ID == "" {
		base.ID = uuid.New().String()
	}
	return nil
}

// Status enums
type CampaignStatus string
type SubscriberStatus string

// Campaign status constants
const (
	CampaignStatusDraft     CampaignStatus = "DRAFT"
	CampaignStatusScheduled CampaignStatus = "SCHEDULED"
	CampaignStatusQueued    CampaignStatus = "QUEUED"
	CampaignStatusSending   CampaignStatus = "SENDING"
	CampaignStatusSent      CampaignStatus = "SENT"
	CampaignStatusFailed    CampaignStatus = "FAILED"
)

// Subscriber status constants
const (
	SubscriberStatusActive       SubscriberStatus = "ACTIVE"
	SubscriberStatusUnsubscribed SubscriberStatus = "UNSUBSCRIBED"
)

// All registers every model for migrations.
func All() []interface{} {
	return []interface{}{
		&User{},
		&AccessToken{},
		&Newsletter{},
		&Subscriber{},
		&Campaign{},
	}
}
