package queue

import (
	"context"
	"time"

	"lillith/internal/database"
	"lillith/internal/logger"

	"github.com/go-co-op/gocron"
)

// Scheduler runs periodic maintenance jobs on the worker.
type Scheduler struct {
	scheduler *gocron.Scheduler
}

func NewScheduler() *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.TagsUnique()
	return &Scheduler{scheduler: s}
}

func (s *Scheduler) Start() {
	s.scheduler.StartAsync()
}

func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// ScheduleInterval schedules a job to run at regular intervals
func (s *Scheduler) ScheduleInterval(tag string, every time.Duration, job func() error) error {
	_, err := s.scheduler.Every(every).Tag(tag).Do(func() {
		if err := job(); err != nil {
			logger.Error("Scheduled job failed", "job", tag, "error", err)
		}
	})
	return err
}

// Jobs lists the tags of scheduled jobs.
func (s *Scheduler) Jobs() []string {
	var tags []string
	for _, j := range s.scheduler.Jobs() {
		tags = append(tags, j.Tags()...)
	}
	return tags
}

// StaleRunReaper marks runs stuck in processing as failed. A run is stale
// when it has not been updated for longer than the task timeout, which means
// the worker that owned it died.
func StaleRunReaper(runs database.RunStore, staleAfter time.Duration) func() error {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		n, err := runs.FailStale(ctx, time.Now().Add(-staleAfter))
		if err != nil {
			return err
		}
		if n > 0 {
			logger.Warn("Marked stale ingestion runs as failed", "count", n)
		}
		return nil
	}
}
