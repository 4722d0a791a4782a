package services

import (
	"context"
	"log"
	"time"

	"rural-voice-be/store"
)

// Scheduler defaults; both are env-tunable through config.
const (
	DefaultEscalationInterval = 24 * time.Hour
	DefaultStalenessThreshold = 7 * 24 * time.Hour
	escalationRunTimeout      = 2 * time.Minute
)

// Scheduler periodically promotes stale open issues to High priority.
// It runs beside the request handlers, mutating the same store through
// the same guarded updates, so a concurrent sweep and status change
// cannot corrupt a document. The sweep deliberately does not publish
// broker events.
type Scheduler struct {
	issues    store.IssueStore
	interval  time.Duration
	threshold time.Duration
	stop      chan struct{}
	done      chan struct{}
}

func NewScheduler(issues store.IssueStore, interval, threshold time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultEscalationInterval
	}
	if threshold <= 0 {
		threshold = DefaultStalenessThreshold
	}
	return &Scheduler{
		issues:    issues,
		interval:  interval,
		threshold: threshold,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the sweep loop. Call Stop to end it.
func (s *Scheduler) Start() {
	log.Printf("escalation: scheduled every %s (staleness threshold %s)", s.interval, s.threshold)
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), escalationRunTimeout)
				escalated, failed := s.RunOnce(ctx)
				cancel()
				if escalated > 0 || failed > 0 {
					log.Printf("escalation: run complete, %d escalated, %d failed", escalated, failed)
				}
			}
		}
	}()
}

// Stop ends the sweep loop and waits for it to exit.
func (s *Scheduler) Stop() {
	close(s.stop)
	<-s.done
}

// RunOnce performs a single sweep: every issue past the staleness
// threshold that is still open and below High priority gets promoted.
// A failure on one issue is logged and counted but never aborts the
// rest of the run. Re-running immediately is a no-op: escalated issues
// no longer match the selection and the store's guard refuses to touch
// them again.
func (s *Scheduler) RunOnce(ctx context.Context) (escalated, failed int) {
	cutoff := time.Now().Add(-s.threshold)

	stale, err := s.issues.FindStale(ctx, cutoff)
	if err != nil {
		log.Printf("escalation: selecting stale issues: %v", err)
		return 0, 0
	}
	if len(stale) == 0 {
		return 0, 0
	}
	log.Printf("escalation: found %d stale issues", len(stale))

	for _, issue := range stale {
		_, changed, err := s.issues.Escalate(ctx, issue.ID)
		if err != nil {
			failed++
			log.Printf("escalation: issue %s: %v", issue.ID.Hex(), err)
			continue
		}
		if changed {
			escalated++
			log.Printf("escalation: issue %s promoted to High priority", issue.ID.Hex())
		}
	}
	return escalated, failed
}
