package grading

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"
)

// Janitor prunes stored score results past the retention window. Results
// are derived data; the runner can always re-score an attempt it still
// holds, so aging them out is safe.
type Janitor struct {
	sched     *gocron.Scheduler
	svc       *Service
	retention time.Duration
}

func NewJanitor(svc *Service, retentionDays int) *Janitor {
	if retentionDays <= 0 {
		retentionDays = 90
	}
	return &Janitor{
		sched:     gocron.NewScheduler(time.UTC),
		svc:       svc,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
	}
}

func (j *Janitor) Start() {
	_, _ = j.sched.Every(1).Hour().Do(j.sweep)
	j.sched.StartAsync()
}

func (j *Janitor) Stop() {
	j.sched.Stop()
}

func (j *Janitor) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-j.retention)
	n, err := j.svc.PurgeResultsBefore(ctx, cutoff)
	if err != nil {
		log.Printf("result retention sweep failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("result retention sweep removed %d results older than %s", n, cutoff.UTC().Format(time.RFC3339))
	}
}
