package services

import (
	"errors"
	"fmt"

	"mailmaster/internal/repository"
)

var (
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrAlreadySubscribed  = errors.New("the email is already subscribed to this newsletter")
	ErrNotSubscribed      = errors.New("the subscriber has already unsubscribed")
	ErrCampaignSent       = errors.New("campaign has already been sent")
	ErrCampaignInFlight   = errors.New("campaign is queued or being delivered")
	ErrArchiveUnavailable = errors.New("campaign archive is not available")
)

// ValidationError is a rule violation found by a service after the request
// passed field validation, such as a duplicate email.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// AbilityError is returned when a token asks for an ability it does not
// itself grant.
type AbilityError struct {
	Ability string
}

func (e *AbilityError) Error() string {
	return "missing required ability: " + e.Ability
}

// NotFoundError names the resource that was missing. It matches
// repository.ErrNotFound with errors.Is.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

func (e *NotFoundError) Is(target error) bool {
	return target == repository.ErrNotFound
}

// notFound converts a repository miss into a NotFoundError for resource and
// passes any other error through.
func notFound(resource string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return &NotFoundError{Resource: resource}
	}
	return err
}
