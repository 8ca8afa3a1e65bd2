package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"speedy-status/internal/model"
)

type JobRepository interface {
	// CreateIfAbsent inserts the job unless one already exists for the same
	// (team, week) in any state other than Canceled. The check and insert run
	// in one transaction so overlapping sweeps cannot double-create. Reports
	// whether the row was inserted.
	CreateIfAbsent(ctx context.Context, job *model.ScheduledPromptJob) (bool, error)
	GetByID(ctx context.Context, id string) (*model.ScheduledPromptJob, error)
	GetPending(ctx context.Context, teamID string) (*model.ScheduledPromptJob, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]model.ScheduledPromptJob, error)
	ListByTeam(ctx context.Context, teamID string) ([]model.ScheduledPromptJob, error)
	// MarkAttempt bumps the attempt counter and records the attempt time and
	// last error for a job still in flight.
	MarkAttempt(ctx context.Context, id string, at time.Time, lastErr string) error
	// Transition moves a Pending job to the given status. It is conditional on
	// the current status so a terminal job is never rewritten; reports whether
	// the transition applied.
	Transition(ctx context.Context, id string, to model.JobStatus) (bool, error)
	// Rearm moves a Failed job back to Pending for a manual resend.
	Rearm(ctx context.Context, id string) (bool, error)
}

type jobRepo struct {
	db *gorm.DB
}

func NewJobRepo(db *gorm.DB) JobRepository { return &jobRepo{db: db} }

func (r *jobRepo) CreateIfAbsent(ctx context.Context, job *model.ScheduledPromptJob) (bool, error) {
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&model.ScheduledPromptJob{}).
			Where("team_id = ? AND week_start = ? AND status <> ?",
				job.TeamID, job.WeekStart, model.JobCanceled).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		if job.ID == "" {
			job.ID = uuid.NewString()
		}
		if job.Status == "" {
			job.Status = model.JobPending
		}
		job.CreatedAt = time.Now().UTC()
		created = true
		return tx.Create(job).Error
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

func (r *jobRepo) GetByID(ctx context.Context, id string) (*model.ScheduledPromptJob, error) {
	var job model.ScheduledPromptJob
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *jobRepo) GetPending(ctx context.Context, teamID string) (*model.ScheduledPromptJob, error) {
	var job model.ScheduledPromptJob
	err := r.db.WithContext(ctx).
		Where("team_id = ? AND status = ?", teamID, model.JobPending).
		First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *jobRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]model.ScheduledPromptJob, error) {
	var jobs []model.ScheduledPromptJob
	q := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_for <= ?", model.JobPending, now).
		Order("scheduled_for")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&jobs).Error
	return jobs, err
}

func (r *jobRepo) ListByTeam(ctx context.Context, teamID string) ([]model.ScheduledPromptJob, error) {
	var jobs []model.ScheduledPromptJob
	err := r.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("scheduled_for DESC").
		Find(&jobs).Error
	return jobs, err
}

func (r *jobRepo) MarkAttempt(ctx context.Context, id string, at time.Time, lastErr string) error {
	return r.db.WithContext(ctx).Model(&model.ScheduledPromptJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempt_count":   gorm.Expr("attempt_count + 1"),
			"last_attempt_at": at,
			"last_error":      lastErr,
		}).Error
}

func (r *jobRepo) Transition(ctx context.Context, id string, to model.JobStatus) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.ScheduledPromptJob{}).
		Where("id = ? AND status = ?", id, model.JobPending).
		Update("status", to)
	return res.RowsAffected > 0, res.Error
}

func (r *jobRepo) Rearm(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.ScheduledPromptJob{}).
		Where("id = ? AND status = ?", id, model.JobFailed).
		Updates(map[string]interface{}{
			"status":        model.JobPending,
			"attempt_count": 0,
			"last_error":    "",
		})
	return res.RowsAffected > 0, res.Error
}
