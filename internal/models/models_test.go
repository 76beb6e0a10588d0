package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBeforeCreateAssignsID(t *testing.T) {
	b := &Base{}
	assert.NoError(t, b.BeforeCreate(nil))
	assert.Len(t, b.ID, 36)

	existing := &Base{ID: "fixed"}
	assert.NoError(t, existing.BeforeCreate(nil))
	assert.Equal(t, "fixed", existing.ID)
}

func TestAccessTokenCan(t *testing.T) {
	tests := []struct {
		name      string
		abilities []string
		ability   string
		want      bool
	}{
		{"wildcard", []string{AbilityAll}, AbilityCampaignsWrite, true},
		{"exact", []string{AbilityNewslettersRead}, AbilityNewslettersRead, true},
		{"write implies read", []string{AbilitySubscribersWrite}, AbilitySubscribersRead, true},
		{"read does not imply write", []string{AbilitySubscribersRead}, AbilitySubscribersWrite, false},
		{"resource wildcard", []string{"campaigns:*"}, AbilityCampaignsWrite, true},
		{"other resource", []string{AbilityCampaignsWrite}, AbilityNewslettersRead, false},
		{"none", nil, AbilityUsersRead, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := &AccessToken{Abilities: tt.abilities}
			assert.Equal(t, tt.want, tok.Can(tt.ability))
		})
	}
}

func TestAccessTokenActive(t *testing.T) {
	now := time.Now()

	assert.True(t, (&AccessToken{ExpiresAt: now.Add(time.Hour)}).Active(now))
	assert.False(t, (&AccessToken{ExpiresAt: now.Add(-time.Second)}).Active(now))

	revoked := now.Add(-time.Minute)
	assert.False(t, (&AccessToken{ExpiresAt: now.Add(time.Hour), RevokedAt: &revoked}).Active(now))
}

func TestSubscriberLifecycle(t *testing.T) {
	s := &Subscriber{}
	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	s.Subscribe(first)
	assert.True(t, s.IsActive())
	assert.Equal(t, first, *s.SubscribedAt)

	later := first.Add(24 * time.Hour)
	s.Unsubscribe(later)
	assert.False(t, s.IsActive())
	assert.Equal(t, SubscriberStatusUnsubscribed, s.Status)
	assert.Equal(t, later, *s.UnsubscribedAt)
	assert.Equal(t, first, *s.SubscribedAt)

	again := later.Add(time.Hour)
	s.Subscribe(again)
	assert.True(t, s.IsActive())
	assert.Nil(t, s.UnsubscribedAt)
}

func TestCampaignStateChecks(t *testing.T) {
	sentAt := time.Now()

	assert.True(t, (&Campaign{Status: CampaignStatusDraft}).Sendable())
	assert.True(t, (&Campaign{Status: CampaignStatusFailed}).Sendable())
	assert.False(t, (&Campaign{Status: CampaignStatusSent, SentAt: &sentAt}).Sendable())
	assert.False(t, (&Campaign{Status: CampaignStatusDraft, SentAt: &sentAt}).Sendable())
	assert.False(t, (&Campaign{Status: CampaignStatusQueued}).Sendable())

	assert.True(t, (&Campaign{Status: CampaignStatusDraft}).Editable())
	assert.True(t, (&Campaign{Status: CampaignStatusFailed}).Editable())
	assert.False(t, (&Campaign{Status: CampaignStatusSent}).Editable())
	assert.False(t, (&Campaign{Status: CampaignStatusDraft, SentAt: &sentAt}).Editable())
	assert.False(t, (&Campaign{Status: CampaignStatusSending}).Editable())
	assert.False(t, (&Campaign{Status: CampaignStatusQueued}).Editable())
}
