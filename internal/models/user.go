package models

import (
	"strings"
	"time"

	"github.com/lib/pq"
)

// Token abilities. A token holding AbilityAll may do anything.
const (
	AbilityAll = "*"

	AbilityUsersRead        = "users:read"
	AbilityNewslettersRead  = "newsletters:read"
	AbilityNewslettersWrite = "newsletters:write"
	AbilitySubscribersRead  = "subscribers:read"
	AbilitySubscribersWrite = "subscribers:write"
	AbilityCampaignsRead    = "campaigns:read"
	AbilityCampaignsWrite   = "campaigns:write"
)

type User struct {
	Base
	Name        string        `gorm:"not null" json:"name"`
	Email       string        `gorm:"uniqueIndex;not null" json:"email"`
	Password    string        `gorm:"not null" json:"-"`
	Newsletters []Newsletter  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"newsletters,omitempty"`
	Tokens      []AccessToken `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// AccessToken is the server-side record behind a bearer token. The token
// string handed to clients carries this row's ID.
type AccessToken struct {
	Base
	UserID     string         `gorm:"type:uuid;not null;index" json:"userId"`
	User       *User          `json:"user,omitempty"`
	Name       string         `gorm:"not null" json:"name"`
	Abilities  pq.StringArray `gorm:"type:text[]" json:"abilities"`
	IPAddress  string         `json:"ipAddress"`
	Device     string         `json:"device"`
	LastUsedAt *time.Time     `json:"lastUsedAt"`
	ExpiresAt  time.Time      `gorm:"not null;index" json:"expiresAt"`
	RevokedAt  *time.Time     `gorm:"index" json:"revokedAt"`
}

// Active reports whether the token may still be used at now.
func (t *AccessToken) Active(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}

// Can reports whether the token grants ability. "res:*" grants every
// ability on res and "res:write" implies "res:read".
func (t *AccessToken) Can(ability string) bool {
	resource, scope, _ := strings.Cut(ability, ":")
	for _, a := range t.Abilities {
		switch a {
		case AbilityAll, ability, resource + ":*":
			return true
		case resource + ":write":
			if scope == "read" {
				return true
			}
		}
	}
	return false
}
