package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"speedy-status/internal/model"
	"speedy-status/internal/schedule"
	"speedy-status/internal/service"
)

// weekStartFor resolves the optional ?week=YYYY-MM-DD query parameter to the
// team-week storage key. Any date inside the week works; absent means the
// current week. Noon anchors the date safely away from DST-shifted midnights.
func weekStartFor(c *gin.Context, team *model.Team) (time.Time, bool) {
	at := time.Now().UTC()
	if raw := c.Query("week"); raw != "" {
		d, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "week must be YYYY-MM-DD"})
			return time.Time{}, false
		}
		loc, err := time.LoadLocation(team.Timezone)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "team timezone unresolvable"})
			return time.Time{}, false
		}
		at = time.Date(d.Year(), d.Month(), d.Day(), 12, 0, 0, 0, loc)
	}
	ws, err := schedule.WeekStart(team.Timezone, at)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "team timezone unresolvable"})
		return time.Time{}, false
	}
	return ws, true
}

func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTeamNotFound), errors.Is(err, service.ErrSummaryNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNoSubmissions),
		errors.Is(err, schedule.ErrInvalidSchedule),
		errors.Is(err, schedule.ErrInvalidTimezone):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrJobNotRearmable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrSummaryGenerationFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "retry_available": true})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
