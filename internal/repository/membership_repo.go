package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"speedy-status/internal/model"
)

type MembershipRepository interface {
	Add(ctx context.Context, m *model.TeamMembership) error
	ListActive(ctx context.Context, teamID string) ([]model.TeamMembership, error)
	CountActive(ctx context.Context, teamID string) (int, error)
}

type membershipRepo struct {
	db *gorm.DB
}

func NewMembershipRepo(db *gorm.DB) MembershipRepository { return &membershipRepo{db: db} }

func (r *membershipRepo) Add(ctx context.Context, m *model.TeamMembership) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Status == "" {
		m.Status = "ACTIVE"
	}
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *membershipRepo) ListActive(ctx context.Context, teamID string) ([]model.TeamMembership, error) {
	var members []model.TeamMembership
	err := r.db.WithContext(ctx).
		Where("team_id = ? AND status = ?", teamID, "ACTIVE").
		Find(&members).Error
	return members, err
}

func (r *membershipRepo) CountActive(ctx context.Context, teamID string) (int, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.TeamMembership{}).
		Where("team_id = ? AND status = ?", teamID, "ACTIVE").
		Count(&n).Error
	return int(n), err
}
