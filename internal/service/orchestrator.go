package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"

	"speedy-status/internal/model"
	"speedy-status/internal/repository"
	"speedy-status/internal/schedule"
)

// SummaryOrchestrator evaluates trigger conditions and owns the one-summary-
// per-team-week invariant. Concurrent evaluators (a timeout sweep racing a
// submission webhook) serialize through a per-team-week mutex in process and
// a compare-and-set on updated_at in the store; the later timestamp wins and
// the losing write is discarded.
type SummaryOrchestrator struct {
	teams     repository.TeamRepository
	subs      repository.SubmissionRepository
	summaries repository.SummaryRepository
	tracker   *SubmissionTracker
	gen       SummaryGenerator
	retry     RetryPolicy
	timeout   time.Duration // per-attempt deadline for one generator call
	window    time.Duration // elapsed time after the first submission before Timeout fires
	log       *slog.Logger
	now       func() time.Time
	inflight  sync.Map // team|week -> *sync.Mutex
}

func NewSummaryOrchestrator(repo *repository.Repository, tracker *SubmissionTracker, gen SummaryGenerator,
	retry RetryPolicy, timeout, window time.Duration, log *slog.Logger) *SummaryOrchestrator {
	return &SummaryOrchestrator{
		teams:     repo.Team,
		subs:      repo.Submission,
		summaries: repo.Summary,
		tracker:   tracker,
		gen:       gen,
		retry:     retry,
		timeout:   timeout,
		window:    window,
		log:       log,
		now:       time.Now,
	}
}

// OnSubmissionRecorded re-evaluates triggers after the intake flow records a
// submission. newSubmission distinguishes a roster-changing arrival from an
// edit that replaced existing content.
func (o *SummaryOrchestrator) OnSubmissionRecorded(ctx context.Context, teamID string, weekStart time.Time, newSubmission bool) error {
	team, err := o.getTeam(ctx, teamID)
	if err != nil {
		return err
	}
	return o.evaluate(ctx, team, weekStart, newSubmission)
}

// TriggerManual generates the week's summary on explicit request. Always
// permitted, always overwrites.
func (o *SummaryOrchestrator) TriggerManual(ctx context.Context, teamID string, weekStart time.Time) (*model.WeeklySummary, error) {
	team, err := o.getTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	return o.generate(ctx, team, weekStart, model.TriggerManual)
}

// RunTimeoutSweep fires the timeout check on the given cadence until ctx is
// canceled.
func (o *SummaryOrchestrator) RunTimeoutSweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			o.log.Info("timeout sweep stopped")
			return
		case <-ticker.C:
			o.SweepTimeouts(ctx)
		}
	}
}

// SweepTimeouts evaluates the current and previous week of every active team,
// so a window elapsing just after a local week rollover is still caught.
func (o *SummaryOrchestrator) SweepTimeouts(ctx context.Context) {
	teams, err := o.teams.List(ctx)
	if err != nil {
		o.log.Error("timeout sweep: list teams", "err", err)
		return
	}
	now := o.now().UTC()
	for i := range teams {
		team := &teams[i]
		if !team.Active {
			continue
		}
		for _, at := range []time.Time{now, now.AddDate(0, 0, -7)} {
			weekStart, err := schedule.WeekStart(team.Timezone, at)
			if err != nil {
				o.log.Error("timeout sweep: week start", "team_id", team.ID, "err", err)
				break
			}
			if err := o.evaluate(ctx, team, weekStart, false); err != nil {
				o.log.Error("timeout sweep: team skipped", "team_id", team.ID, "err", err)
			}
		}
	}
}

// evaluate applies the trigger rules for one team-week.
func (o *SummaryOrchestrator) evaluate(ctx context.Context, team *model.Team, weekStart time.Time, newSubmission bool) error {
	st, err := o.tracker.Status(ctx, team.ID, weekStart)
	if err != nil {
		return err
	}
	if st.SubmittedCount == 0 {
		return nil
	}

	existing, err := o.getSummary(ctx, team.ID, weekStart)
	if err != nil {
		return err
	}

	if existing == nil {
		switch {
		case st.AllSubmitted:
			_, err = o.generate(ctx, team, weekStart, model.TriggerAllSubmitted)
		case st.EarliestSubmittedAt != nil && !o.now().UTC().Before(st.EarliestSubmittedAt.Add(o.window)):
			_, err = o.generate(ctx, team, weekStart, model.TriggerTimeout)
		}
		return err
	}

	// Late arrival: a summary already exists and a new submission changed
	// completeness, so regenerate in place. Completing the roster after a
	// Timeout summary upgrades the trigger; otherwise the firing reason is
	// unchanged.
	if !newSubmission {
		return nil
	}
	trigger := existing.TriggerType
	if st.AllSubmitted && existing.TriggerType == model.TriggerTimeout {
		trigger = model.TriggerAllSubmitted
	}
	_, err = o.generate(ctx, team, weekStart, trigger)
	return err
}

// generate runs the generator with retry/backoff and persists the result
// under the uniqueness invariant. A failed generation leaves any prior
// summary untouched.
func (o *SummaryOrchestrator) generate(ctx context.Context, team *model.Team, weekStart time.Time, trigger model.TriggerType) (*model.WeeklySummary, error) {
	unlock := o.lock(team.ID, weekStart)
	defer unlock()

	subs, err := o.subs.ListForWeek(ctx, team.ID, weekStart)
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, ErrNoSubmissions
	}
	texts := make([]SubmissionText, 0, len(subs))
	for i := range subs {
		texts = append(texts, SubmissionText{UserName: subs[i].UserName, Content: subs[i].Content})
	}

	var text string
	var lastErr error
	for attempt := 1; attempt <= o.retry.MaxAttempts; attempt++ {
		actx, cancel := context.WithTimeout(ctx, o.timeout)
		text, lastErr = o.gen.Generate(actx, team.Name, texts)
		cancel()
		if lastErr == nil {
			break
		}
		o.log.Warn("generation attempt failed", "team_id", team.ID,
			"week_start", weekStart, "attempt", attempt, "err", lastErr)
		if attempt < o.retry.MaxAttempts {
			if err := o.retry.Wait(ctx, attempt); err != nil {
				return nil, err
			}
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrSummaryGenerationFailed, lastErr)
	}

	return o.persist(ctx, team.ID, weekStart, text, trigger)
}

// persist writes the summary as the authoritative text for this instant.
// Creation is guarded by the (team, week) unique key; overwrites CAS on
// updated_at. A lost race is the documented expected outcome, logged at
// debug level only, and the store's winner is returned.
func (o *SummaryOrchestrator) persist(ctx context.Context, teamID string, weekStart time.Time, text string, trigger model.TriggerType) (*model.WeeklySummary, error) {
	now := o.now().UTC()

	existing, err := o.getSummary(ctx, teamID, weekStart)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		rec := &model.WeeklySummary{
			TeamID:      teamID,
			WeekStart:   weekStart,
			Text:        text,
			TriggerType: trigger,
			GeneratedAt: now,
			UpdatedAt:   now,
		}
		if err := o.summaries.Create(ctx, rec); err == nil {
			o.log.Info("summary created", "team_id", teamID, "week_start", weekStart, "trigger", string(trigger))
			return rec, nil
		}
		// Unique-key conflict: a concurrent evaluator created the row while
		// we were generating. Fall through to the CAS path against it.
		if existing, err = o.getSummary(ctx, teamID, weekStart); err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, fmt.Errorf("summary create conflict not readable for team %s", teamID)
		}
	}

	if !now.After(existing.UpdatedAt) {
		o.log.Debug("concurrent write lost", "team_id", teamID, "week_start", weekStart)
		return existing, nil
	}
	rec := *existing
	rec.Text = text
	rec.TriggerType = trigger
	rec.UpdatedAt = now
	won, err := o.summaries.UpdateCAS(ctx, &rec, existing.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if !won {
		o.log.Debug("concurrent write lost", "team_id", teamID, "week_start", weekStart)
		return o.getSummaryStrict(ctx, teamID, weekStart)
	}
	o.log.Info("summary updated", "team_id", teamID, "week_start", weekStart, "trigger", string(trigger))
	return &rec, nil
}

func (o *SummaryOrchestrator) lock(teamID string, weekStart time.Time) func() {
	key := teamID + "|" + weekStart.Format(time.RFC3339)
	v, _ := o.inflight.LoadOrStore(key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (o *SummaryOrchestrator) getTeam(ctx context.Context, teamID string) (*model.Team, error) {
	team, err := o.teams.GetByID(ctx, teamID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTeamNotFound
	}
	if err != nil {
		return nil, err
	}
	return team, nil
}

func (o *SummaryOrchestrator) getSummary(ctx context.Context, teamID string, weekStart time.Time) (*model.WeeklySummary, error) {
	s, err := o.summaries.Get(ctx, teamID, weekStart)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (o *SummaryOrchestrator) getSummaryStrict(ctx context.Context, teamID string, weekStart time.Time) (*model.WeeklySummary, error) {
	s, err := o.getSummary(ctx, teamID, weekStart)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrSummaryNotFound
	}
	return s, nil
}
