package model

import (
	"strings"
	"time"
)

type JobStatus string

const (
	JobPending  JobStatus = "PENDING"
	JobSent     JobStatus = "SENT"
	JobFailed   JobStatus = "FAILED"
	JobCanceled JobStatus = "CANCELED"
)

// Terminal reports whether no further transitions apply to the job.
func (s JobStatus) Terminal() bool {
	return s == JobSent || s == JobFailed || s == JobCanceled
}

type TriggerType string

const (
	TriggerAllSubmitted TriggerType = "ALL_SUBMITTED"
	TriggerTimeout      TriggerType = "TIMEOUT"
	TriggerManual       TriggerType = "MANUAL"
)

type Channel string

const (
	ChannelEmail Channel = "EMAIL"
	ChannelSlack Channel = "SLACK"
	ChannelVoice Channel = "VOICE"
)

type Team struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	Name          string    `json:"name"`
	PromptWeekday int       `json:"prompt_weekday"`            // 0 = Monday .. 6 = Sunday
	PromptTime    string    `gorm:"size:5" json:"prompt_time"` // "HH:MM", 24h
	Timezone      string    `gorm:"size:64" json:"timezone"`
	Channels      string    `gorm:"size:128;default:EMAIL" json:"channels"`
	Active        bool      `gorm:"default:true" json:"active"`
	CreatedAt     time.Time `json:"created_at"`
}

// ChannelSet splits the stored channel list. Empty entries are dropped.
func (t *Team) ChannelSet() []Channel { return splitChannels(t.Channels) }

type TeamMembership struct {
	ID       string `gorm:"primaryKey;size:36" json:"id"`
	TeamID   string `gorm:"size:36;uniqueIndex:uk_team_user,priority:1" json:"team_id"`
	UserID   string `gorm:"size:36;uniqueIndex:uk_team_user,priority:2" json:"user_id"`
	UserName string `json:"user_name"`
	Status   string `gorm:"size:16;default:ACTIVE" json:"status"`
}

type Submission struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	TeamID      string    `gorm:"size:36;uniqueIndex:uk_sub_team_user_week,priority:1" json:"team_id"`
	UserID      string    `gorm:"size:36;uniqueIndex:uk_sub_team_user_week,priority:2" json:"user_id"`
	UserName    string    `json:"user_name"`
	Content     string    `gorm:"type:text" json:"content"`
	WeekStart   time.Time `gorm:"uniqueIndex:uk_sub_team_user_week,priority:3" json:"week_start"`
	SubmittedAt time.Time `json:"submitted_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ScheduledPromptJob struct {
	ID            string     `gorm:"primaryKey;size:36" json:"id"`
	TeamID        string     `gorm:"size:36;index:idx_job_team_week,priority:1" json:"team_id"`
	WeekStart     time.Time  `gorm:"index:idx_job_team_week,priority:2" json:"week_start"`
	ScheduledFor  time.Time  `gorm:"index" json:"scheduled_for"`
	Status        JobStatus  `gorm:"size:16;index" json:"status"`
	Channels      string     `gorm:"size:128" json:"channels"`
	AttemptCount  int        `gorm:"default:0" json:"attempt_count"`
	LastError     string     `gorm:"type:text" json:"last_error"`
	CreatedAt     time.Time  `json:"created_at"`
	LastAttemptAt *time.Time `json:"last_attempt_at"`
}

func (j *ScheduledPromptJob) ChannelSet() []Channel { return splitChannels(j.Channels) }

type WeeklySummary struct {
	ID          string      `gorm:"primaryKey;size:36" json:"id"`
	TeamID      string      `gorm:"size:36;uniqueIndex:uk_summary_team_week,priority:1" json:"team_id"`
	WeekStart   time.Time   `gorm:"uniqueIndex:uk_summary_team_week,priority:2" json:"week_start"`
	Text        string      `gorm:"type:text" json:"text"`
	TriggerType TriggerType `gorm:"size:16" json:"trigger_type"`
	GeneratedAt time.Time   `json:"generated_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func splitChannels(s string) []Channel {
	var out []Channel
	for _, c := range strings.Split(s, ",") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, Channel(c))
		}
	}
	return out
}

func (Team) TableName() string               { return "teams" }
func (TeamMembership) TableName() string     { return "team_memberships" }
func (Submission) TableName() string         { return "submissions" }
func (ScheduledPromptJob) TableName() string { return "scheduled_prompt_jobs" }
func (WeeklySummary) TableName() string      { return "weekly_summaries" }
