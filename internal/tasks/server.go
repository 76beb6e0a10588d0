package tasks

import (
	"context"
	"fmt"
	"time"

	"mailmaster/internal/config"
	"mailmaster/internal/utils/logger"

	"github.com/hibiken/asynq"
)

var queuePriorities = map[string]int{
	QueueCritical: 6,
	QueueDefault:  3,
	QueueLow:      1,
}

// Server handles task processing
type Server struct {
	server      *asynq.Server
	handler     *TaskHandler
	logger      *logger.Logger
	concurrency int
}

// NewServer creates a new task processing server
func NewServer(redis config.RedisConfig, worker config.WorkerConfig, handler *TaskHandler, log *logger.Logger) *Server {
	server := asynq.NewServer(
		RedisOpt(redis),
		asynq.Config{
			Concurrency:     worker.Concurrency,
			Queues:          queuePriorities,
			StrictPriority:  true,
			ShutdownTimeout: 30 * time.Second,
			Logger:          asynqLogger{log},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Warn("task %s failed: %v", task.Type(), err)
			}),
		},
	)

	return &Server{
		server:      server,
		handler:     handler,
		logger:      log,
		concurrency: worker.Concurrency,
	}
}

// Start starts the task processing server. It returns once the workers are
// running.
func (s *Server) Start() error {
	s.logger.Info("starting task processing server concurrency=%d queues=%v", s.concurrency, queuePriorities)

	if err := s.server.Start(s.handler.Mux()); err != nil {
		return fmt.Errorf("failed to start task server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the task processing server
func (s *Server) Shutdown() {
	s.logger.Info("shutting down task processing server")
	s.server.Shutdown()
}

// asynqLogger adapts the application logger to asynq.Logger.
type asynqLogger struct {
	log *logger.Logger
}

func (l asynqLogger) Debug(args ...interface{}) { l.log.Debug("%s", fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...interface{})  { l.log.Info("%s", fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...interface{})  { l.log.Warn("%s", fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...interface{}) { l.log.Errorf("%s", fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...interface{}) { l.log.Errorf("%s", fmt.Sprint(args...)) }
