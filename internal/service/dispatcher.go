package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"speedy-status/internal/model"
	"speedy-status/internal/repository"
)

// Dispatcher executes due prompt jobs against the Notifier. A job is Sent as
// soon as at least one channel has succeeded by the time retries settle, and
// Failed only when every channel exhausted the attempt ceiling.
type Dispatcher struct {
	jobs     repository.JobRepository
	teams    repository.TeamRepository
	notifier Notifier
	retry    RetryPolicy
	timeout  time.Duration // per-attempt deadline for one Notifier call
	batch    int
	log      *slog.Logger
	now      func() time.Time
}

func NewDispatcher(repo *repository.Repository, notifier Notifier, retry RetryPolicy, timeout time.Duration, batch int, log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		jobs:     repo.Job,
		teams:    repo.Team,
		notifier: notifier,
		retry:    retry,
		timeout:  timeout,
		batch:    batch,
		log:      log,
		now:      time.Now,
	}
}

// Run polls for due jobs on the given cadence until ctx is canceled.
func (d *Dispatcher) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			d.log.Info("dispatcher stopped")
			return
		case <-ticker.C:
			d.DispatchDue(ctx)
		}
	}
}

// DispatchDue fans due jobs out to worker goroutines so one slow channel
// cannot hold up other teams' deliveries.
func (d *Dispatcher) DispatchDue(ctx context.Context) {
	due, err := d.jobs.ListDue(ctx, d.now().UTC(), d.batch)
	if err != nil {
		d.log.Error("list due jobs", "err", err)
		return
	}
	var wg sync.WaitGroup
	for i := range due {
		wg.Add(1)
		go func(job model.ScheduledPromptJob) {
			defer wg.Done()
			if err := d.Dispatch(ctx, job.ID); err != nil {
				d.log.Error("dispatch failed", "job_id", job.ID, "team_id", job.TeamID, "err", err)
			}
		}(due[i])
	}
	wg.Wait()
}

// Dispatch delivers one job. Safe to invoke repeatedly: a job already in a
// terminal state is a no-op.
func (d *Dispatcher) Dispatch(ctx context.Context, jobID string) error {
	job, err := d.jobs.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status != model.JobPending {
		return nil
	}

	team, err := d.teams.GetByID(ctx, job.TeamID)
	if err != nil {
		return err
	}
	payload := NotifyPayload{TeamName: team.Name, WeekStart: job.WeekStart}

	remaining := job.ChannelSet()
	anySuccess := false
	for attempt := 1; attempt <= d.retry.MaxAttempts; attempt++ {
		var failed []model.Channel
		var lastErr error
		for _, ch := range remaining {
			if err := d.send(ctx, job.TeamID, ch, payload); err != nil {
				d.log.Warn("channel delivery failed", "job_id", job.ID,
					"channel", string(ch), "attempt", attempt, "err", err)
				failed = append(failed, ch)
				lastErr = err
				continue
			}
			anySuccess = true
		}
		if err := d.jobs.MarkAttempt(ctx, job.ID, d.now().UTC(), errString(lastErr)); err != nil {
			return err
		}
		remaining = failed
		if len(remaining) == 0 {
			break
		}
		if attempt < d.retry.MaxAttempts {
			if err := d.retry.Wait(ctx, attempt); err != nil {
				return err
			}
		}
	}

	if anySuccess {
		if _, err := d.jobs.Transition(ctx, job.ID, model.JobSent); err != nil {
			return err
		}
		d.log.Info("prompt sent", "job_id", job.ID, "team_id", job.TeamID,
			"channels_failed", len(remaining))
		return nil
	}
	if _, err := d.jobs.Transition(ctx, job.ID, model.JobFailed); err != nil {
		return err
	}
	return fmt.Errorf("%w: job %s", ErrDispatchFailed, job.ID)
}

// Redispatch re-arms a Failed job for a manual resend from the dashboard.
func (d *Dispatcher) Redispatch(ctx context.Context, jobID string) error {
	ok, err := d.jobs.Rearm(ctx, jobID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrJobNotRearmable
	}
	d.log.Info("job re-armed", "job_id", jobID)
	return nil
}

func (d *Dispatcher) send(ctx context.Context, teamID string, ch model.Channel, payload NotifyPayload) error {
	actx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	return d.notifier.Send(actx, teamID, ch, payload)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
