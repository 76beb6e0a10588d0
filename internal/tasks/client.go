package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"mailmaster/internal/config"
	"mailmaster/internal/utils/logger"

	"github.com/hibiken/asynq"
)

// Enqueuer is the part of *asynq.Client the TaskClient uses.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// TaskClient enqueues background work. It satisfies the queue interfaces of
// the campaign service and the welcome hook.
type TaskClient struct {
	client Enqueuer
	logger *logger.Logger
}

// RedisOpt converts the Redis settings into asynq's connection options.
func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// NewTaskClient creates a new TaskClient with the given Redis configuration
func NewTaskClient(cfg config.RedisConfig, log *logger.Logger) *TaskClient {
	return NewTaskClientWith(asynq.NewClient(RedisOpt(cfg)), log)
}

func NewTaskClientWith(client Enqueuer, log *logger.Logger) *TaskClient {
	return &TaskClient{client: client, logger: log}
}

// Close closes the underlying asynq client
func (c *TaskClient) Close() error {
	return c.client.Close()
}

// EnqueueCampaignSend queues delivery of a campaign. Callers claim the
// campaign first, so the same campaign is never queued twice.
func (c *TaskClient) EnqueueCampaignSend(ctx context.Context, campaignID string) error {
	payload, err := json.Marshal(CampaignSendTask{CampaignID: campaignID})
	if err != nil {
		return fmt.Errorf("failed to marshal campaign task: %w", err)
	}

	info, err := c.client.EnqueueContext(ctx,
		asynq.NewTask(TaskTypeCampaignSend, payload),
		asynq.Queue(QueueCritical),
		asynq.Timeout(TimeoutLong),
		asynq.MaxRetry(RetryDefault),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue campaign task: %w", err)
	}

	c.logger.Info("Enqueued campaign task [%s] in queue %s for campaign %s", info.ID, info.Queue, campaignID)
	return nil
}

// EnqueueWelcome queues the welcome email for a new subscriber.
func (c *TaskClient) EnqueueWelcome(ctx context.Context, subscriberID string) error {
	payload, err := json.Marshal(WelcomeTask{SubscriberID: subscriberID})
	if err != nil {
		return fmt.Errorf("failed to marshal welcome task: %w", err)
	}

	info, err := c.client.EnqueueContext(ctx,
		asynq.NewTask(TaskTypeSubscriberWelcome, payload),
		asynq.Queue(QueueDefault),
		asynq.Timeout(TimeoutShort),
		asynq.MaxRetry(RetryDefault),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue welcome task: %w", err)
	}

	c.logger.Info("Enqueued welcome task [%s] in queue %s for subscriber %s", info.ID, info.Queue, subscriberID)
	return nil
}
