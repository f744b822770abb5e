package queue

import (
	"encoding/json"
	"time"

	"marketplace-backend/internal/shared"
	"marketplace-backend/pkg/logger"

	"github.com/hibiken/asynq"
)

type Scheduler struct {
	scheduler *asynq.Scheduler
}

func NewScheduler(redisAddress string) *Scheduler {
	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{Addr: redisAddress},
		&asynq.SchedulerOpts{
			Location: time.UTC,
			LogLevel: asynq.InfoLevel,
		},
	)

	return &Scheduler{scheduler: scheduler}
}

func (s *Scheduler) RegisterCleanupJobs() error {
	return s.registerCleanupTempUploadsJob()
}

// Cleanup Temp Uploads (Daily at 2 AM)
// Import commits upload images before the product writes land; a crash
// between the two leaves orphaned objects in the staging prefix.
func (s *Scheduler) registerCleanupTempUploadsJob() error {
	payload, err := json.Marshal(shared.CleanupTempUploadsPayload{OlderThanHours: 24})
	if err != nil {
		return err
	}

	task := asynq.NewTask(shared.TypeCleanupTempUploads, payload)

	_, err = s.scheduler.Register(
		"0 2 * * *", // Daily at 2 AM
		task,
		asynq.Queue(shared.QueueImports),
		asynq.MaxRetry(2),
		asynq.Timeout(10*time.Minute),
	)

	if err != nil {
		logger.Error("Failed to register CleanupTempUploads job", err)
		return err
	}

	logger.Info("✓ Registered CleanupTempUploads: daily at 2 AM", map[string]interface{}{})
	return nil
}

func (s *Scheduler) Start() error {
	return s.scheduler.Run()
}

func (s *Scheduler) Shutdown() {
	s.scheduler.Shutdown()
}
