package model

import "time"

type ScheduleUpdateRequest struct {
	PromptWeekday *int    `json:"prompt_weekday" binding:"omitempty,min=0,max=6" validate:"omitempty,min=0,max=6"`
	PromptTime    *string `json:"prompt_time" binding:"omitempty,len=5" validate:"omitempty,len=5"`
	Timezone      *string `json:"timezone" validate:"omitempty,timezone"`
	Channels      *string `json:"channels"`
}

type SubmissionRequest struct {
	TeamID  string `json:"team_id" binding:"required"`
	UserID  string `json:"user_id" binding:"required"`
	Content string `json:"content" binding:"required"`
}

type SubmissionResponse struct {
	ID          string    `json:"id"`
	WeekStart   time.Time `json:"week_start"`
	SubmittedAt time.Time `json:"submitted_at"`
	Replaced    bool      `json:"replaced"`
}

type TrackerStatusResponse struct {
	TeamID              string     `json:"team_id"`
	WeekStart           time.Time  `json:"week_start"`
	SubmittedCount      int        `json:"submitted_count"`
	RosterSize          int        `json:"roster_size"`
	EarliestSubmittedAt *time.Time `json:"earliest_submitted_at,omitempty"`
	AllSubmitted        bool       `json:"all_submitted"`
}

type SummaryResponse struct {
	ID          string      `json:"id"`
	TeamID      string      `json:"team_id"`
	WeekStart   time.Time   `json:"week_start"`
	Text        string      `json:"text"`
	TriggerType TriggerType `json:"trigger_type"`
	GeneratedAt time.Time   `json:"generated_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func NewSummaryResponse(s *WeeklySummary) SummaryResponse {
	return SummaryResponse{
		ID: s.ID, TeamID: s.TeamID, WeekStart: s.WeekStart,
		Text: s.Text, TriggerType: s.TriggerType,
		GeneratedAt: s.GeneratedAt, UpdatedAt: s.UpdatedAt,
	}
}
