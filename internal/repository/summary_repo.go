package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"speedy-status/internal/model"
)

type SummaryRepository interface {
	Get(ctx context.Context, teamID string, weekStart time.Time) (*model.WeeklySummary, error)
	// Create inserts the first summary for a team-week. The unique key on
	// (team_id, week_start) makes a concurrent double-create fail rather than
	// duplicate; callers fall back to a CAS update on conflict.
	Create(ctx context.Context, s *model.WeeklySummary) error
	// UpdateCAS overwrites text/trigger/updated_at only if the row still
	// carries prevUpdatedAt. Reports whether the write won.
	UpdateCAS(ctx context.Context, s *model.WeeklySummary, prevUpdatedAt time.Time) (bool, error)
	ListByTeam(ctx context.Context, teamID string) ([]model.WeeklySummary, error)
}

type summaryRepo struct {
	db *gorm.DB
}

func NewSummaryRepo(db *gorm.DB) SummaryRepository { return &summaryRepo{db: db} }

func (r *summaryRepo) Get(ctx context.Context, teamID string, weekStart time.Time) (*model.WeeklySummary, error) {
	var s model.WeeklySummary
	err := r.db.WithContext(ctx).
		Where("team_id = ? AND week_start = ?", teamID, weekStart).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *summaryRepo) Create(ctx context.Context, s *model.WeeklySummary) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *summaryRepo) UpdateCAS(ctx context.Context, s *model.WeeklySummary, prevUpdatedAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.WeeklySummary{}).
		Where("id = ? AND updated_at = ?", s.ID, prevUpdatedAt).
		Updates(map[string]interface{}{
			"text":         s.Text,
			"trigger_type": s.TriggerType,
			"updated_at":   s.UpdatedAt,
		})
	return res.RowsAffected > 0, res.Error
}

func (r *summaryRepo) ListByTeam(ctx context.Context, teamID string) ([]model.WeeklySummary, error) {
	var out []model.WeeklySummary
	err := r.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("week_start DESC").
		Find(&out).Error
	return out, err
}
