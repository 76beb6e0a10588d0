package tasks

import (
	"fmt"

	"mailmaster/internal/config"
	"mailmaster/internal/utils/logger"

	"github.com/hibiken/asynq"
)

// PeriodicTask is one cron entry of the scheduler.
type PeriodicTask struct {
	Spec string
	Task *asynq.Task
}

// Scheduler handles periodic task scheduling
type Scheduler struct {
	scheduler *asynq.Scheduler
	entries   []PeriodicTask
	logger    *logger.Logger
}

// PeriodicTasks lists the cron entries for cfg.
func PeriodicTasks(cfg config.WorkerConfig) []PeriodicTask {
	return []PeriodicTask{
		{
			Spec: cfg.DispatchCron,
			Task: asynq.NewTask(TaskTypeCampaignDispatch, nil,
				asynq.Queue(QueueDefault),
				asynq.MaxRetry(RetryMin),
				asynq.Timeout(TimeoutMedium),
			),
		},
		{
			Spec: cfg.PruneCron,
			Task: asynq.NewTask(TaskTypeTokenPrune, nil,
				asynq.Queue(QueueLow),
				asynq.MaxRetry(RetryMin),
				asynq.Timeout(TimeoutMedium),
			),
		},
	}
}

// NewScheduler creates a new task scheduler
func NewScheduler(redis config.RedisConfig, worker config.WorkerConfig, log *logger.Logger) *Scheduler {
	scheduler := asynq.NewScheduler(RedisOpt(redis), &asynq.SchedulerOpts{
		Logger: asynqLogger{log},
	})

	return &Scheduler{
		scheduler: scheduler,
		entries:   PeriodicTasks(worker),
		logger:    log,
	}
}

// Start registers the periodic tasks and starts the scheduler in the
// background.
func (s *Scheduler) Start() error {
	for _, entry := range s.entries {
		entryID, err := s.scheduler.Register(entry.Spec, entry.Task)
		if err != nil {
			return fmt.Errorf("failed to register %s: %w", entry.Task.Type(), err)
		}
		s.logger.Debug("registered %s (%s) as %s", entry.Task.Type(), entry.Spec, entryID)
	}

	s.logger.Info("starting task scheduler")
	return s.scheduler.Start()
}

// Shutdown stops the scheduler
func (s *Scheduler) Shutdown() {
	s.scheduler.Shutdown()
	s.logger.Info("task scheduler stopped")
}
