package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/uniwatch/uniwatch-api/internal/models"
	"github.com/uniwatch/uniwatch-api/pkg/config"
	"github.com/uniwatch/uniwatch-api/pkg/jobs"
	"github.com/uniwatch/uniwatch-api/pkg/recognition"
)

const jobTypeTrainClass = "train_class"

type trainerClient interface {
	Train(ctx context.Context, groupID string) error
	GetTrainingStatus(ctx context.Context, groupID string) (recognition.TrainingState, error)
}

type trainingClassRepo interface {
	UpdateTrainingStatus(ctx context.Context, id string, status, expect models.TrainingStatus) error
}

type trainingMetrics interface {
	TrainingFinished(outcome string)
}

// TrainingService drives recognizer training in the background. A scheduled
// class is trained by the recognition service while a worker polls for the
// terminal state; the class ends up trained on success and back at untrained
// on failure or poll timeout. Status updates are guarded on the training
// state so a roster change that already reset the class wins over a stale
// worker.
type TrainingService struct {
	classes    trainingClassRepo
	recognizer trainerClient

	pollInterval    time.Duration
	pollMaxAttempts int
	queue           *jobs.Queue
	metrics         trainingMetrics
	logger          *zap.Logger
}

// NewTrainingService constructs TrainingService with its own worker queue.
func NewTrainingService(classes trainingClassRepo, recognizer trainerClient, cfg config.RecognitionConfig, logger *zap.Logger) *TrainingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &TrainingService{
		classes:         classes,
		recognizer:      recognizer,
		pollInterval:    cfg.PollInterval,
		pollMaxAttempts: cfg.PollMaxAttempts,
		logger:          logger,
	}
	if s.pollInterval <= 0 {
		s.pollInterval = time.Second
	}
	if s.pollMaxAttempts <= 0 {
		s.pollMaxAttempts = 60
	}
	s.queue = jobs.NewQueue("recognizer-training", s.handleTrainJob, jobs.QueueConfig{
		Workers:    cfg.TrainingWorkers,
		MaxRetries: 1,
		Logger:     logger,
	})
	return s
}

// SetMetrics attaches an optional training run counter.
func (s *TrainingService) SetMetrics(m trainingMetrics) {
	s.metrics = m
}

// Start launches the training workers.
func (s *TrainingService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the training workers.
func (s *TrainingService) Stop() {
	s.queue.Stop()
}

// Schedule enqueues a training run for the class.
func (s *TrainingService) Schedule(classID string) error {
	return s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    jobTypeTrainClass,
		Payload: classID,
	})
}

// handleTrainJob always resolves the class to a terminal training status; it
// never returns an error to the queue, so a run is not retried after the
// status has already been settled.
func (s *TrainingService) handleTrainJob(ctx context.Context, job jobs.Job) error {
	classID, ok := job.Payload.(string)
	if !ok {
		s.logger.Error("train job carried unexpected payload", zap.String("job_id", job.ID))
		return nil
	}

	if err := s.recognizer.Train(ctx, classID); err != nil {
		s.logger.Error("training start failed",
			zap.String("class_id", classID),
			zap.Error(err))
		s.resetToUntrained(ctx, classID)
		return nil
	}

	state, err := s.pollUntilTerminal(ctx, classID)
	if err != nil {
		s.logger.Error("training poll gave up",
			zap.String("class_id", classID),
			zap.Error(err))
		s.resetToUntrained(ctx, classID)
		return nil
	}

	switch state {
	case recognition.TrainingSucceeded:
		if err := s.classes.UpdateTrainingStatus(ctx, classID, models.TrainingStatusTrained, models.TrainingStatusTraining); err != nil {
			s.logger.Error("failed to mark class trained",
				zap.String("class_id", classID),
				zap.Error(err))
			return nil
		}
		s.recordOutcome("trained")
		s.logger.Info("class trained", zap.String("class_id", classID))
	default:
		s.logger.Warn("training failed",
			zap.String("class_id", classID),
			zap.String("state", string(state)))
		s.resetToUntrained(ctx, classID)
	}
	return nil
}

func (s *TrainingService) recordOutcome(outcome string) {
	if s.metrics != nil {
		s.metrics.TrainingFinished(outcome)
	}
}

// pollUntilTerminal polls training status a bounded number of times. The
// poll budget caps how long a class can sit in the training state.
func (s *TrainingService) pollUntilTerminal(ctx context.Context, classID string) (recognition.TrainingState, error) {
	timer := time.NewTimer(s.pollInterval)
	defer timer.Stop()

	for attempt := 0; attempt < s.pollMaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}

		state, err := s.recognizer.GetTrainingStatus(ctx, classID)
		if err != nil {
			s.logger.Warn("training status check failed",
				zap.String("class_id", classID),
				zap.Error(err))
		} else if state != recognition.TrainingRunning {
			return state, nil
		}
		timer.Reset(s.pollInterval)
	}
	return "", fmt.Errorf("training did not finish within %d polls", s.pollMaxAttempts)
}

func (s *TrainingService) resetToUntrained(ctx context.Context, classID string) {
	s.recordOutcome("failed")
	if err := s.classes.UpdateTrainingStatus(ctx, classID, models.TrainingStatusUntrained, models.TrainingStatusTraining); err != nil {
		s.logger.Error("failed to reset training status",
			zap.String("class_id", classID),
			zap.Error(err))
	}
}
