package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"speedy-status/internal/model"
	"speedy-status/internal/repository"
)

func newTestDispatcher(repo *repository.Repository, notifier Notifier, maxAttempts int) *Dispatcher {
	d := NewDispatcher(repo, notifier,
		RetryPolicy{MaxAttempts: maxAttempts, BaseDelay: time.Millisecond},
		time.Second, 10, slog.Default())
	return d
}

func seedDueJob(t *testing.T, repo *repository.Repository, channels string) *model.ScheduledPromptJob {
	t.Helper()
	require.NoError(t, repo.Team.Create(context.Background(), nyTeam()))
	job := &model.ScheduledPromptJob{
		TeamID:       "team-1",
		WeekStart:    time.Date(2024, 6, 10, 4, 0, 0, 0, time.UTC),
		ScheduledFor: time.Date(2024, 6, 10, 13, 0, 0, 0, time.UTC),
		Channels:     channels,
	}
	created, err := repo.Job.CreateIfAbsent(context.Background(), job)
	require.NoError(t, err)
	require.True(t, created)
	return job
}

func TestDispatcher_AllChannelsSucceed(t *testing.T) {
	repo, _, jobs, _, _, _ := testRepo()
	notifier := newFakeNotifier()
	job := seedDueJob(t, repo, "EMAIL,SLACK")

	d := newTestDispatcher(repo, notifier, 5)
	require.NoError(t, d.Dispatch(context.Background(), job.ID))

	got, err := jobs.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobSent, got.Status)
	assert.Equal(t, 1, got.AttemptCount)
	assert.NotNil(t, got.LastAttemptAt)
	assert.Equal(t, 2, notifier.callCount())
}

func TestDispatcher_PartialChannelFailureStillSent(t *testing.T) {
	repo, _, jobs, _, _, _ := testRepo()
	notifier := newFakeNotifier()
	notifier.failures[model.ChannelSlack] = -1 // slack never recovers
	job := seedDueJob(t, repo, "EMAIL,SLACK")

	d := newTestDispatcher(repo, notifier, 3)
	require.NoError(t, d.Dispatch(context.Background(), job.ID))

	got, err := jobs.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobSent, got.Status)
	assert.Equal(t, 3, got.AttemptCount)
	// Email once, slack retried at every attempt.
	assert.Equal(t, 4, notifier.callCount())
}

func TestDispatcher_AllChannelsFailAfterCeiling(t *testing.T) {
	repo, _, jobs, _, _, _ := testRepo()
	notifier := newFakeNotifier()
	notifier.failures[model.ChannelEmail] = -1
	notifier.failures[model.ChannelSlack] = -1
	job := seedDueJob(t, repo, "EMAIL,SLACK")

	d := newTestDispatcher(repo, notifier, 5)
	err := d.Dispatch(context.Background(), job.ID)
	assert.True(t, errors.Is(err, ErrDispatchFailed))

	got, gerr := jobs.GetByID(context.Background(), job.ID)
	require.NoError(t, gerr)
	assert.Equal(t, model.JobFailed, got.Status)
	assert.Equal(t, 5, got.AttemptCount)
	assert.NotEmpty(t, got.LastError)
}

func TestDispatcher_FailedJobDoesNotBlockNextWeek(t *testing.T) {
	repo, _, jobs, _, _, _ := testRepo()
	notifier := newFakeNotifier()
	notifier.failures[model.ChannelEmail] = -1
	job := seedDueJob(t, repo, "EMAIL")

	d := newTestDispatcher(repo, notifier, 2)
	assert.Error(t, d.Dispatch(context.Background(), job.ID))

	// The scheduler still rolls the team forward on schedule.
	s := newTestScheduler(repo, job.ScheduledFor.Add(time.Minute))
	s.Sweep(context.Background())

	next, err := jobs.GetPending(context.Background(), "team-1")
	require.NoError(t, err)
	assert.Equal(t, job.ScheduledFor.AddDate(0, 0, 7), next.ScheduledFor)
}

func TestDispatcher_TransientFailureRecovers(t *testing.T) {
	repo, _, jobs, _, _, _ := testRepo()
	notifier := newFakeNotifier()
	notifier.failures[model.ChannelEmail] = 2 // fails twice, then delivers
	job := seedDueJob(t, repo, "EMAIL")

	d := newTestDispatcher(repo, notifier, 5)
	require.NoError(t, d.Dispatch(context.Background(), job.ID))

	got, err := jobs.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobSent, got.Status)
	assert.Equal(t, 3, got.AttemptCount)
}

func TestDispatcher_IdempotentOnTerminalJob(t *testing.T) {
	repo, _, jobs, _, _, _ := testRepo()
	notifier := newFakeNotifier()
	job := seedDueJob(t, repo, "EMAIL")

	d := newTestDispatcher(repo, notifier, 5)
	require.NoError(t, d.Dispatch(context.Background(), job.ID))
	require.Equal(t, 1, notifier.callCount())

	// Re-invoking on an already-Sent job makes no further notifier calls.
	require.NoError(t, d.Dispatch(context.Background(), job.ID))
	assert.Equal(t, 1, notifier.callCount())

	got, err := jobs.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.AttemptCount)
}

func TestDispatcher_RedispatchReArmsFailedJob(t *testing.T) {
	repo, _, jobs, _, _, _ := testRepo()
	notifier := newFakeNotifier()
	notifier.failures[model.ChannelEmail] = 2
	job := seedDueJob(t, repo, "EMAIL")

	d := newTestDispatcher(repo, notifier, 2)
	assert.Error(t, d.Dispatch(context.Background(), job.ID))

	require.NoError(t, d.Redispatch(context.Background(), job.ID))
	got, err := jobs.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobPending, got.Status)
	assert.Equal(t, 0, got.AttemptCount)

	// Channel recovered; the re-armed job now delivers.
	require.NoError(t, d.Dispatch(context.Background(), job.ID))
	got, err = jobs.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobSent, got.Status)
}

func TestDispatcher_RedispatchRejectsNonFailedJob(t *testing.T) {
	repo, _, _, _, _, _ := testRepo()
	notifier := newFakeNotifier()
	job := seedDueJob(t, repo, "EMAIL")

	d := newTestDispatcher(repo, notifier, 5)
	err := d.Redispatch(context.Background(), job.ID)
	assert.True(t, errors.Is(err, ErrJobNotRearmable))
}

func TestDispatcher_DispatchDueProcessesOnlyDueJobs(t *testing.T) {
	repo, teams, jobs, _, _, _ := testRepo()
	notifier := newFakeNotifier()
	require.NoError(t, teams.Create(context.Background(), nyTeam()))

	due := &model.ScheduledPromptJob{
		TeamID:       "team-1",
		WeekStart:    time.Date(2024, 6, 10, 4, 0, 0, 0, time.UTC),
		ScheduledFor: time.Date(2024, 6, 10, 13, 0, 0, 0, time.UTC),
		Channels:     "EMAIL",
	}
	_, err := jobs.CreateIfAbsent(context.Background(), due)
	require.NoError(t, err)
	future := &model.ScheduledPromptJob{
		TeamID:       "team-1",
		WeekStart:    time.Date(2024, 6, 17, 4, 0, 0, 0, time.UTC),
		ScheduledFor: time.Date(2024, 6, 17, 13, 0, 0, 0, time.UTC),
		Channels:     "EMAIL",
	}
	_, err = jobs.CreateIfAbsent(context.Background(), future)
	require.NoError(t, err)

	d := newTestDispatcher(repo, notifier, 5)
	d.now = func() time.Time { return time.Date(2024, 6, 10, 13, 5, 0, 0, time.UTC) }
	d.DispatchDue(context.Background())

	sent, err := jobs.GetByID(context.Background(), due.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobSent, sent.Status)

	waiting, err := jobs.GetByID(context.Background(), future.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobPending, waiting.Status)
}
