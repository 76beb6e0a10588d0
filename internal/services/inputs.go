package services

import "time"

type RegisterInput struct {
	Name                 string `json:"name" validate:"required,max=255"`
	Email                string `json:"email" validate:"required,email,max=255"`
	Password             string `json:"password" validate:"required,min=8"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required,eqfield=Password"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ProfileInput updates only the fields that are set.
type ProfileInput struct {
	Name                 string `json:"name" validate:"omitempty,max=255"`
	Email                string `json:"email" validate:"omitempty,email,max=255"`
	Password             string `json:"password" validate:"omitempty,min=8"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required_with=Password,eqfield=Password"`
}

type TokenInput struct {
	Name      string   `json:"name" validate:"required,max=255"`
	Abilities []string `json:"abilities" validate:"required,min=1,dive,oneof=* users:read newsletters:read newsletters:write subscribers:read subscribers:write campaigns:read campaigns:write"`
}

type NewsletterInput struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description" validate:"max=255"`
}

type SubscriberInput struct {
	Email        string                 `json:"email" validate:"required,email,max=255"`
	Name         string                 `json:"name" validate:"max=255"`
	NewsletterID string                 `json:"newsletter_id" validate:"required,uuid"`
	Metadata     map[string]interface{} `json:"metadata"`
}

// SubscribeInput is a subscription to the newsletter named in the path.
type SubscribeInput struct {
	Email    string                 `json:"email" validate:"required,email,max=255"`
	Name     string                 `json:"name" validate:"max=255"`
	Metadata map[string]interface{} `json:"metadata"`
}

type CampaignInput struct {
	NewsletterID string     `json:"newsletter_id" validate:"required,uuid"`
	Subject      string     `json:"subject" validate:"required,max=255"`
	Body         string     `json:"body" validate:"required"`
	ScheduledAt  *time.Time `json:"scheduled_at"`
	SentAt       *time.Time `json:"sent_at"`
}

// ClientMeta describes the client a token is issued to.
type ClientMeta struct {
	IPAddress string
	UserAgent string
}
