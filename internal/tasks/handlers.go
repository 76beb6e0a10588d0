package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"mailmaster/internal/repository"
	"mailmaster/internal/services"
	"mailmaster/internal/utils/logger"

	"github.com/hibiken/asynq"
)

// Deliverer sends queued campaigns and welcome emails.
type Deliverer interface {
	Deliver(ctx context.Context, campaignID string) (*services.DeliveryReport, error)
	SendWelcome(ctx context.Context, subscriberID string) error
}

// Dispatcher queues scheduled campaigns that have come due.
type Dispatcher interface {
	Dispatch(ctx context.Context) (int, error)
}

// Pruner removes expired and revoked tokens.
type Pruner interface {
	PruneTokens(ctx context.Context) (int64, error)
}

// TaskHandler handles task processing with improved error handling and logging
type TaskHandler struct {
	delivery   Deliverer
	dispatcher Dispatcher
	pruner     Pruner
	logger     *logger.Logger
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(delivery Deliverer, dispatcher Dispatcher, pruner Pruner, log *logger.Logger) *TaskHandler {
	return &TaskHandler{
		delivery:   delivery,
		dispatcher: dispatcher,
		pruner:     pruner,
		logger:     log,
	}
}

// HandleCampaignSend delivers one campaign.
func (h *TaskHandler) HandleCampaignSend(ctx context.Context, t *asynq.Task) error {
	var task CampaignSendTask
	if err := json.Unmarshal(t.Payload(), &task); err != nil || task.CampaignID == "" {
		return fmt.Errorf("failed to unmarshal campaign task: %w", asynq.SkipRetry)
	}

	h.logger.Info("processing campaign task %s", task.CampaignID)

	report, err := h.delivery.Deliver(ctx, task.CampaignID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("campaign %s no longer exists: %w", task.CampaignID, asynq.SkipRetry)
		}
		return err
	}
	if report != nil {
		h.logger.Info("campaign %s finished as %s", report.CampaignID, report.Status)
	}
	return nil
}

// HandleWelcome sends the welcome email to one subscriber.
func (h *TaskHandler) HandleWelcome(ctx context.Context, t *asynq.Task) error {
	var task WelcomeTask
	if err := json.Unmarshal(t.Payload(), &task); err != nil || task.SubscriberID == "" {
		return fmt.Errorf("failed to unmarshal welcome task: %w", asynq.SkipRetry)
	}

	if err := h.delivery.SendWelcome(ctx, task.SubscriberID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("subscriber %s no longer exists: %w", task.SubscriberID, asynq.SkipRetry)
		}
		return fmt.Errorf("failed to send welcome email: %w", err)
	}
	return nil
}

// HandleCampaignDispatch queues due scheduled campaigns.
func (h *TaskHandler) HandleCampaignDispatch(ctx context.Context, _ *asynq.Task) error {
	n, err := h.dispatcher.Dispatch(ctx)
	if err != nil {
		return fmt.Errorf("failed to dispatch campaigns: %w", err)
	}
	if n > 0 {
		h.logger.Info("dispatched %d scheduled campaigns", n)
	}
	return nil
}

// HandleTokenPrune deletes dead access tokens.
func (h *TaskHandler) HandleTokenPrune(ctx context.Context, _ *asynq.Task) error {
	n, err := h.pruner.PruneTokens(ctx)
	if err != nil {
		return fmt.Errorf("failed to prune tokens: %w", err)
	}
	h.logger.Info("pruned %d access tokens", n)
	return nil
}

// Mux routes every task type to its handler.
func (h *TaskHandler) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypeCampaignSend, h.HandleCampaignSend)
	mux.HandleFunc(TaskTypeCampaignDispatch, h.HandleCampaignDispatch)
	mux.HandleFunc(TaskTypeSubscriberWelcome, h.HandleWelcome)
	mux.HandleFunc(TaskTypeTokenPrune, h.HandleTokenPrune)
	return mux
}
