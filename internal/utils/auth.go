package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const (
	audienceAPI         = "api"
	audienceUnsubscribe = "unsubscribe"
	issuer              = "mailmaster"
)

var ErrInvalidToken = errors.New("invalid token")

// TokenClaims are carried by bearer tokens. ID (jti) is the access token
// row that must still be live for the token to be accepted.
type TokenClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// GenerateAccessToken signs a bearer token for the access token row tokenID.
func GenerateAccessToken(secret, tokenID, userID string, issuedAt, expiresAt time.Time) (string, error) {
	claims := TokenClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Subject:   userID,
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{audienceAPI},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseAccessToken verifies the signature, expiry and audience of raw.
func ParseAccessToken(secret, raw string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	if err := parse(secret, raw, claims); err != nil {
		return nil, err
	}
	if !claims.VerifyAudience(audienceAPI, true) || claims.ID == "" || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// UnsubscribeClaims are embedded in the unsubscribe link of every campaign
// email. They do not expire.
type UnsubscribeClaims struct {
	SubscriberID string `json:"sid"`
	jwt.RegisteredClaims
}

func GenerateUnsubscribeToken(secret, subscriberID string) (string, error) {
	claims := UnsubscribeClaims{
		SubscriberID: subscriberID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   issuer,
			Audience: jwt.ClaimStrings{audienceUnsubscribe},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseUnsubscribeToken returns the subscriber ID carried by raw.
func ParseUnsubscribeToken(secret, raw string) (string, error) {
	claims := &UnsubscribeClaims{}
	if err := parse(secret, raw, claims); err != nil {
		return "", err
	}
	if !claims.VerifyAudience(audienceUnsubscribe, true) || claims.SubscriberID == "" {
		return "", ErrInvalidToken
	}
	return claims.SubscriberID, nil
}

func parse(secret, raw string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return ErrInvalidToken
	}
	return nil
}
