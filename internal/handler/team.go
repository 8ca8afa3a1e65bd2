package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"speedy-status/internal/model"
	"speedy-status/internal/repository"
	"speedy-status/internal/schedule"
	"speedy-status/internal/service"
)

type TeamHandler struct {
	teams    repository.TeamRepository
	validate *validator.Validate
}

func NewTeamHandler(repo *repository.Repository) *TeamHandler {
	return &TeamHandler{teams: repo.Team, validate: validator.New()}
}

// UpdateSchedule changes a team's recurring prompt configuration. Bad
// weekday, time format, or timezone is rejected here, at the settings
// boundary, never deferred to dispatch time. The scheduler's next sweep
// replaces any pending job computed from the old configuration.
func (h *TeamHandler) UpdateSchedule(c *gin.Context) {
	var req model.ScheduleUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	team, err := h.teams.GetByID(c.Request.Context(), c.Param("team_id"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeServiceError(c, service.ErrTeamNotFound)
		return
	}
	if err != nil {
		writeServiceError(c, err)
		return
	}

	if req.PromptWeekday != nil {
		team.PromptWeekday = *req.PromptWeekday
	}
	if req.PromptTime != nil {
		team.PromptTime = *req.PromptTime
	}
	if req.Timezone != nil {
		team.Timezone = *req.Timezone
	}
	if req.Channels != nil {
		team.Channels = *req.Channels
	}
	if len(team.ChannelSet()) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "channel set must not be empty"})
		return
	}

	if err := schedule.Validate(schedule.TeamSchedule{
		TeamID:        team.ID,
		PromptWeekday: team.PromptWeekday,
		PromptTime:    team.PromptTime,
		Timezone:      team.Timezone,
	}); err != nil {
		writeServiceError(c, err)
		return
	}

	if err := h.teams.UpdateSchedule(c.Request.Context(), team); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, team)
}
