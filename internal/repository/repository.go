package repository

import (
	"speedy-status/internal/model"

	"gorm.io/gorm"
)

// Repository aggregates the store interfaces the engine depends on.
type Repository struct {
	Team       TeamRepository
	Membership MembershipRepository
	Submission SubmissionRepository
	Job        JobRepository
	Summary    SummaryRepository
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		Team:       NewTeamRepo(db),
		Membership: NewMembershipRepo(db),
		Submission: NewSubmissionRepo(db),
		Job:        NewJobRepo(db),
		Summary:    NewSummaryRepo(db),
	}
}

// AutoMigrate creates the engine's tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Team{},
		&model.TeamMembership{},
		&model.Submission{},
		&model.ScheduledPromptJob{},
		&model.WeeklySummary{},
	)
}
