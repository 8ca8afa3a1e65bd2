package service

import (
	"context"
	"log/slog"
	"time"

	"speedy-status/internal/model"
)

// NotifyPayload carries what a delivery channel needs to render the weekly
// prompt.
type NotifyPayload struct {
	TeamName  string
	WeekStart time.Time
}

// Notifier is the external delivery capability. Implementations report
// success or failure per channel; the dispatcher owns retry accounting.
type Notifier interface {
	Send(ctx context.Context, teamID string, channel model.Channel, payload NotifyPayload) error
}

// LogNotifier writes prompts to the log instead of a real channel. Used in
// dev setups and as the default when no channel integration is configured.
type LogNotifier struct {
	Log *slog.Logger
}

func (n *LogNotifier) Send(_ context.Context, teamID string, channel model.Channel, payload NotifyPayload) error {
	n.Log.Info("prompt dispatched",
		"team_id", teamID,
		"channel", string(channel),
		"team", payload.TeamName,
		"week_start", payload.WeekStart)
	return nil
}
