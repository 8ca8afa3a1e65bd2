package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"speedy-status/internal/model"
)

type TeamRepository interface {
	Create(ctx context.Context, team *model.Team) error
	GetByID(ctx context.Context, id string) (*model.Team, error)
	// List returns all teams, inactive ones included: the scheduler needs to
	// see soft-deleted and lapsed teams to cancel their pending jobs.
	List(ctx context.Context) ([]model.Team, error)
	UpdateSchedule(ctx context.Context, team *model.Team) error
}

type teamRepo struct {
	db *gorm.DB
}

func NewTeamRepo(db *gorm.DB) TeamRepository { return &teamRepo{db: db} }

func (r *teamRepo) Create(ctx context.Context, team *model.Team) error {
	if team.ID == "" {
		team.ID = uuid.NewString()
	}
	team.CreatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Create(team).Error
}

func (r *teamRepo) GetByID(ctx context.Context, id string) (*model.Team, error) {
	var team model.Team
	if err := r.db.WithContext(ctx).First(&team, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &team, nil
}

func (r *teamRepo) List(ctx context.Context) ([]model.Team, error) {
	var teams []model.Team
	err := r.db.WithContext(ctx).Find(&teams).Error
	return teams, err
}

func (r *teamRepo) UpdateSchedule(ctx context.Context, team *model.Team) error {
	return r.db.WithContext(ctx).Model(&model.Team{}).
		Where("id = ?", team.ID).
		Updates(map[string]interface{}{
			"prompt_weekday": team.PromptWeekday,
			"prompt_time":    team.PromptTime,
			"timezone":       team.Timezone,
			"channels":       team.Channels,
		}).Error
}
