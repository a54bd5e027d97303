package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/corpora/internal/interfaces"
	"github.com/ternarybob/corpora/internal/models"
)

const sweepTimeout = 30 * time.Minute

// Scheduler periodically sweeps queued documents through the pipeline
type Scheduler struct {
	pipeline interfaces.PipelineService
	cron     *cron.Cron
	limit    int
	logger   arbor.ILogger
	wg       sync.WaitGroup
}

// NewScheduler creates a new sweep scheduler. limit caps the documents
// processed per sweep.
func NewScheduler(pipeline interfaces.PipelineService, limit int, logger arbor.ILogger) *Scheduler {
	if limit <= 0 {
		limit = 10
	}
	return &Scheduler{
		pipeline: pipeline,
		cron:     cron.New(cron.WithSeconds()),
		limit:    limit,
		logger:   logger,
	}
}

// Start begins the scheduled sweeps
func (s *Scheduler) Start(schedule string) error {
	if schedule == "" {
		// Default: every minute
		schedule = "0 */1 * * * *"
	}

	_, err := s.cron.AddFunc(schedule, func() {
		s.runSweep()
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info().
		Str("schedule", schedule).
		Msg("Pending-document scheduler started")

	return nil
}

// Stop stops the scheduler and waits for in-flight sweeps
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.wg.Wait()
	s.logger.Info().Msg("Pending-document scheduler stopped")
}

// RunNow triggers an immediate sweep. The returned channel delivers the
// sweep result (nil when the sweep errored) so callers can join it.
func (s *Scheduler) RunNow() <-chan *models.SweepResult {
	s.logger.Info().Msg("Triggering immediate sweep")
	done := make(chan *models.SweepResult, 1)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		done <- s.runSweep()
	}()
	return done
}

func (s *Scheduler) runSweep() *models.SweepResult {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	result, err := s.pipeline.ProcessPendingDocuments(ctx, "", s.limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("Scheduled sweep failed")
		return nil
	}

	return result
}
