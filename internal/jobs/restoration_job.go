package jobs

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"moc-service/internal/events"
	"moc-service/internal/models"
	"moc-service/internal/repository"
)

// RestorationJob periodically flags active temporary changes whose planned
// restoration date has passed. The flip itself runs under FOR UPDATE SKIP
// LOCKED, so multiple service instances can run the job concurrently.
type RestorationJob struct {
	repo     *repository.RequestRepository
	emitter  events.Emitter
	logger   *logrus.Entry
	interval time.Duration
	stopChan chan struct{}
}

// NewRestorationJob creates a new RestorationJob
func NewRestorationJob(repo *repository.RequestRepository, emitter events.Emitter, logger *logrus.Logger, interval time.Duration) *RestorationJob {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.InfoLevel)
	}
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &RestorationJob{
		repo:     repo,
		emitter:  emitter,
		logger:   logger.WithField("component", "restoration-job"),
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins the periodic sweep in a background goroutine
func (j *RestorationJob) Start() {
	j.logger.WithField("interval", j.interval.String()).Info("Starting restoration job")

	go func() {
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		// Run once at startup so a restart doesn't delay overdue flags.
		j.run()

		for {
			select {
			case <-ticker.C:
				j.run()
			case <-j.stopChan:
				j.logger.Info("Restoration job stopped")
				return
			}
		}
	}()
}

// Stop signals the job to stop
func (j *RestorationJob) Stop() {
	close(j.stopChan)
}

func (j *RestorationJob) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	overdue, err := j.repo.FindOverdueRestorations(ctx)
	if err != nil {
		j.logger.WithError(err).Error("Failed to find overdue restorations")
		return
	}
	if len(overdue) == 0 {
		return
	}

	j.logger.WithField("count", len(overdue)).Info("Found overdue temporary changes")

	for _, request := range overdue {
		flipped, err := j.repo.MarkForRestorationWithLock(ctx, request.ID)
		if err != nil {
			j.logger.WithField("requestId", request.ID).WithError(err).Error("Failed to flag request for restoration")
			continue
		}
		if !flipped {
			continue
		}

		entry := &models.ActivityLog{
			RequestID: request.ID,
			Action:    models.ActionRestorationDue,
			Remarks:   "Planned restoration date passed",
		}
		if err := j.repo.CreateActivityLog(ctx, entry); err != nil {
			j.logger.WithField("requestId", request.ID).WithError(err).Error("Failed to write restoration activity")
		}

		request.Status = models.StatusForRestoration
		event := events.NewWorkflowEvent(events.RestorationDue, &request)
		event.TargetRole = models.RoleRequestor
		if err := j.emitter.Emit(ctx, event); err != nil {
			j.logger.WithField("requestId", request.ID).WithError(err).Error("Failed to emit restoration event")
		}

		j.logger.WithFields(logrus.Fields{
			"requestId":     request.ID,
			"controlNumber": request.ControlNumber,
		}).Info("Request flagged for restoration")
	}
}
