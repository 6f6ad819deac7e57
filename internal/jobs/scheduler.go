package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Job is a unit of periodic background work.
type Job interface {
	Run(ctx context.Context) error
}

// Scheduler runs registered jobs on fixed intervals.
type Scheduler struct {
	scheduler gocron.Scheduler
}

// NewScheduler creates a scheduler pinned to UTC.
func NewScheduler() (*Scheduler, error) {
	s, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &Scheduler{scheduler: s}, nil
}

// Register schedules a job to run every interval. The first run
// happens one interval after Start, not immediately.
func (s *Scheduler) Register(name string, interval time.Duration, job Job) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			log.Printf("▶️  [SCHEDULER] Running job: %s", name)
			start := time.Now()
			if err := job.Run(context.Background()); err != nil {
				log.Printf("❌ [SCHEDULER] Job '%s' failed: %v", name, err)
				return
			}
			log.Printf("✅ [SCHEDULER] Job '%s' completed in %v", name, time.Since(start))
		}),
		gocron.WithName(name),
	)
	if err != nil {
		return fmt.Errorf("failed to register job %s: %w", name, err)
	}

	log.Printf("⏰ [SCHEDULER] Registered job '%s' (every %v)", name, interval)
	return nil
}

// Start begins running all registered jobs.
func (s *Scheduler) Start() {
	s.scheduler.Start()
	log.Println("🚀 [SCHEDULER] Job scheduler started")
}

// Stop shuts the scheduler down, waiting for in-flight jobs.
func (s *Scheduler) Stop() {
	if err := s.scheduler.Shutdown(); err != nil {
		log.Printf("⚠️  [SCHEDULER] Shutdown error: %v", err)
		return
	}
	log.Println("🛑 [SCHEDULER] Job scheduler stopped")
}
