package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"speedy-status/internal/model"
	"speedy-status/internal/repository"
	"speedy-status/internal/schedule"
)

// Scheduler materializes prompt jobs from team configuration. It is
// stateless: all shared state lives in the job store, and job creation is a
// conditional insert, so any number of instances may sweep concurrently.
type Scheduler struct {
	teams repository.TeamRepository
	jobs  repository.JobRepository
	log   *slog.Logger
	now   func() time.Time
}

func NewScheduler(repo *repository.Repository, log *slog.Logger) *Scheduler {
	return &Scheduler{teams: repo.Team, jobs: repo.Job, log: log, now: time.Now}
}

// Run sweeps on the given cadence until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep ensures every active team has the correct pending job and that
// inactive teams have none. One team's failure never aborts the rest.
func (s *Scheduler) Sweep(ctx context.Context) {
	teams, err := s.teams.List(ctx)
	if err != nil {
		s.log.Error("sweep: list teams", "err", err)
		return
	}
	for i := range teams {
		if err := s.sweepTeam(ctx, &teams[i]); err != nil {
			s.log.Error("sweep: team skipped", "team_id", teams[i].ID, "err", err)
		}
	}
}

func (s *Scheduler) sweepTeam(ctx context.Context, team *model.Team) error {
	now := s.now().UTC()

	pending, err := s.jobs.GetPending(ctx, team.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	if !team.Active {
		if pending != nil {
			if _, err := s.jobs.Transition(ctx, pending.ID, model.JobCanceled); err != nil {
				return err
			}
			s.log.Info("canceled job for inactive team", "team_id", team.ID, "job_id", pending.ID)
		}
		return nil
	}

	next, err := schedule.NextOccurrence(schedule.TeamSchedule{
		TeamID:        team.ID,
		PromptWeekday: team.PromptWeekday,
		PromptTime:    team.PromptTime,
		Timezone:      team.Timezone,
	}, now)
	if err != nil {
		return err
	}

	if pending != nil {
		// A due job belongs to the dispatcher; a future job that still
		// matches the schedule needs nothing. Only a future job computed
		// from stale configuration is replaced.
		if !pending.ScheduledFor.After(now) || pending.ScheduledFor.Equal(next) {
			return nil
		}
		if _, err := s.jobs.Transition(ctx, pending.ID, model.JobCanceled); err != nil {
			return err
		}
		s.log.Info("canceled stale job", "team_id", team.ID, "job_id", pending.ID,
			"was", pending.ScheduledFor, "now", next)
	}

	weekStart, err := schedule.WeekStart(team.Timezone, next)
	if err != nil {
		return err
	}
	job := &model.ScheduledPromptJob{
		TeamID:       team.ID,
		WeekStart:    weekStart,
		ScheduledFor: next,
		Channels:     team.Channels,
	}
	created, err := s.jobs.CreateIfAbsent(ctx, job)
	if err != nil {
		return err
	}
	if created {
		s.log.Info("job scheduled", "team_id", team.ID, "job_id", job.ID,
			"scheduled_for", next, "week_start", weekStart)
	}
	return nil
}
