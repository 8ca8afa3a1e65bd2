package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"speedy-status/internal/repository"
	"speedy-status/internal/service"
)

type JobHandler struct {
	jobs       repository.JobRepository
	dispatcher *service.Dispatcher
}

func NewJobHandler(repo *repository.Repository, dispatcher *service.Dispatcher) *JobHandler {
	return &JobHandler{jobs: repo.Job, dispatcher: dispatcher}
}

// List returns a team's job history for the dashboard, newest first.
func (h *JobHandler) List(c *gin.Context) {
	jobs, err := h.jobs.ListByTeam(c.Request.Context(), c.Param("team_id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, jobs)
}

// Redispatch re-arms a failed job for manual resend.
func (h *JobHandler) Redispatch(c *gin.Context) {
	if err := h.dispatcher.Redispatch(c.Request.Context(), c.Param("job_id")); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "pending"})
}
