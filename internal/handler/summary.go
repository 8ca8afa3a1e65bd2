package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"speedy-status/internal/model"
	"speedy-status/internal/repository"
	"speedy-status/internal/service"
)

type SummaryHandler struct {
	orch      *service.SummaryOrchestrator
	teams     repository.TeamRepository
	summaries repository.SummaryRepository
}

func NewSummaryHandler(orch *service.SummaryOrchestrator, repo *repository.Repository) *SummaryHandler {
	return &SummaryHandler{orch: orch, teams: repo.Team, summaries: repo.Summary}
}

// Generate fires the manual trigger for a team-week.
func (h *SummaryHandler) Generate(c *gin.Context) {
	team, ok := h.loadTeam(c)
	if !ok {
		return
	}
	weekStart, ok := weekStartFor(c, team)
	if !ok {
		return
	}
	summary, err := h.orch.TriggerManual(c.Request.Context(), team.ID, weekStart)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.NewSummaryResponse(summary))
}

// List returns all summaries for a team, newest week first.
func (h *SummaryHandler) List(c *gin.Context) {
	team, ok := h.loadTeam(c)
	if !ok {
		return
	}
	summaries, err := h.summaries.ListByTeam(c.Request.Context(), team.ID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	out := make([]model.SummaryResponse, 0, len(summaries))
	for i := range summaries {
		out = append(out, model.NewSummaryResponse(&summaries[i]))
	}
	c.JSON(http.StatusOK, out)
}

// Get returns one week's summary.
func (h *SummaryHandler) Get(c *gin.Context) {
	team, ok := h.loadTeam(c)
	if !ok {
		return
	}
	weekStart, ok := weekStartFor(c, team)
	if !ok {
		return
	}
	summary, err := h.summaries.Get(c.Request.Context(), team.ID, weekStart)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeServiceError(c, service.ErrSummaryNotFound)
		return
	}
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.NewSummaryResponse(summary))
}

func (h *SummaryHandler) loadTeam(c *gin.Context) (*model.Team, bool) {
	team, err := h.teams.GetByID(c.Request.Context(), c.Param("team_id"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeServiceError(c, service.ErrTeamNotFound)
		return nil, false
	}
	if err != nil {
		writeServiceError(c, err)
		return nil, false
	}
	return team, true
}
