package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"speedy-status/internal/model"
	"speedy-status/internal/repository"
	"speedy-status/internal/schedule"
	"speedy-status/internal/service"
)

type SubmissionHandler struct {
	teams   repository.TeamRepository
	members repository.MembershipRepository
	subs    repository.SubmissionRepository
	tracker *service.SubmissionTracker
	orch    *service.SummaryOrchestrator
}

func NewSubmissionHandler(repo *repository.Repository, tracker *service.SubmissionTracker, orch *service.SummaryOrchestrator) *SubmissionHandler {
	return &SubmissionHandler{
		teams:   repo.Team,
		members: repo.Membership,
		subs:    repo.Submission,
		tracker: tracker,
		orch:    orch,
	}
}

// Create records a member's weekly submission (replacing any earlier one for
// the same week) and re-evaluates summary triggers, which covers the
// late-arrival regeneration path.
func (h *SubmissionHandler) Create(c *gin.Context) {
	var req model.SubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	team, err := h.teams.GetByID(c.Request.Context(), req.TeamID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeServiceError(c, service.ErrTeamNotFound)
		return
	}
	if err != nil {
		writeServiceError(c, err)
		return
	}

	userName := req.UserID
	members, err := h.members.ListActive(c.Request.Context(), team.ID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	found := false
	for i := range members {
		if members[i].UserID == req.UserID {
			userName = members[i].UserName
			found = true
			break
		}
	}
	if !found {
		c.JSON(http.StatusForbidden, gin.H{"error": "user is not a member of this team"})
		return
	}

	now := time.Now().UTC()
	weekStart, err := schedule.WeekStart(team.Timezone, now)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	sub := &model.Submission{
		TeamID:      team.ID,
		UserID:      req.UserID,
		UserName:    userName,
		Content:     req.Content,
		WeekStart:   weekStart,
		SubmittedAt: now,
		UpdatedAt:   now,
	}
	replaced, err := h.subs.Upsert(c.Request.Context(), sub)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	if err := h.orch.OnSubmissionRecorded(c.Request.Context(), team.ID, weekStart, !replaced); err != nil {
		// The submission itself is recorded; a failed evaluation is surfaced
		// without rolling it back.
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, model.SubmissionResponse{
		ID:          sub.ID,
		WeekStart:   sub.WeekStart,
		SubmittedAt: sub.SubmittedAt,
		Replaced:    replaced,
	})
}

// Status exposes the tracker's completeness view for dashboards.
func (h *SubmissionHandler) Status(c *gin.Context) {
	team, err := h.teams.GetByID(c.Request.Context(), c.Param("team_id"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeServiceError(c, service.ErrTeamNotFound)
		return
	}
	if err != nil {
		writeServiceError(c, err)
		return
	}
	weekStart, ok := weekStartFor(c, team)
	if !ok {
		return
	}
	st, err := h.tracker.Status(c.Request.Context(), team.ID, weekStart)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.TrackerStatusResponse{
		TeamID:              team.ID,
		WeekStart:           weekStart,
		SubmittedCount:      st.SubmittedCount,
		RosterSize:          st.RosterSize,
		EarliestSubmittedAt: st.EarliestSubmittedAt,
		AllSubmitted:        st.AllSubmitted,
	})
}
