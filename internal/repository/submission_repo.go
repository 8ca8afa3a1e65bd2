package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"speedy-status/internal/model"
)

type SubmissionRepository interface {
	// Upsert records a submission, replacing an existing one for the same
	// (team, user, week). The latest content wins; the original SubmittedAt
	// is preserved on replacement. Reports whether an existing row was replaced.
	Upsert(ctx context.Context, sub *model.Submission) (bool, error)
	ListForWeek(ctx context.Context, teamID string, weekStart time.Time) ([]model.Submission, error)
}

type submissionRepo struct {
	db *gorm.DB
}

func NewSubmissionRepo(db *gorm.DB) SubmissionRepository { return &submissionRepo{db: db} }

func (r *submissionRepo) Upsert(ctx context.Context, sub *model.Submission) (bool, error) {
	replaced := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.Submission
		err := tx.Where("team_id = ? AND user_id = ? AND week_start = ?",
			sub.TeamID, sub.UserID, sub.WeekStart).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if sub.ID == "" {
				sub.ID = uuid.NewString()
			}
			return tx.Create(sub).Error
		}
		if err != nil {
			return err
		}
		replaced = true
		sub.ID = existing.ID
		sub.SubmittedAt = existing.SubmittedAt
		return tx.Model(&existing).Updates(map[string]interface{}{
			"content":    sub.Content,
			"user_name":  sub.UserName,
			"updated_at": sub.UpdatedAt,
		}).Error
	})
	return replaced, err
}

func (r *submissionRepo) ListForWeek(ctx context.Context, teamID string, weekStart time.Time) ([]model.Submission, error) {
	var subs []model.Submission
	err := r.db.WithContext(ctx).
		Where("team_id = ? AND week_start = ?", teamID, weekStart).
		Order("submitted_at").
		Find(&subs).Error
	return subs, err
}
