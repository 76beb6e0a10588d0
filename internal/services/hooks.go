package services

import (
	"context"

	"mailmaster/internal/events"
	"mailmaster/internal/models"
	"mailmaster/internal/utils/logger"
)

// WelcomeQueue enqueues welcome emails.
type WelcomeQueue interface {
	EnqueueWelcome(ctx context.Context, subscriberID string) error
}

// RegisterWelcomeHook enqueues a welcome email whenever a subscriber row is
// created. Enqueue failures are logged; the subscription itself stands.
func RegisterWelcomeHook(bus *events.Bus, queue WelcomeQueue, log *logger.Logger) {
	bus.On("subscribers.created", func(ctx context.Context, data interface{}) {
		sub, ok := data.(*models.Subscriber)
		if !ok || !sub.IsActive() {
			return
		}
		log.Info("Enqueueing welcome email for %s", sub.Email)
		if err := queue.EnqueueWelcome(context.WithoutCancel(ctx), sub.ID); err != nil {
			log.Error("Failed to enqueue welcome email", err)
		}
	})
}
