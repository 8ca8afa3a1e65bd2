package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"speedy-status/internal/model"
)

// ── mock TeamRepository ──

type mockTeamRepo struct {
	mu    sync.Mutex
	teams map[string]*model.Team
}

func newMockTeamRepo() *mockTeamRepo {
	return &mockTeamRepo{teams: make(map[string]*model.Team)}
}

func (m *mockTeamRepo) Create(_ context.Context, team *model.Team) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if team.ID == "" {
		team.ID = uuid.NewString()
	}
	m.teams[team.ID] = team
	return nil
}

func (m *mockTeamRepo) GetByID(_ context.Context, id string) (*model.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.teams[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTeamRepo) List(_ context.Context) ([]model.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Team
	for _, t := range m.teams {
		out = append(out, *t)
	}
	return out, nil
}

func (m *mockTeamRepo) UpdateSchedule(_ context.Context, team *model.Team) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.teams[team.ID]; ok {
		t.PromptWeekday = team.PromptWeekday
		t.PromptTime = team.PromptTime
		t.Timezone = team.Timezone
		t.Channels = team.Channels
	}
	return nil
}

// ── mock MembershipRepository ──

type mockMembershipRepo struct {
	mu      sync.Mutex
	members []model.TeamMembership
}

func newMockMembershipRepo() *mockMembershipRepo { return &mockMembershipRepo{} }

func (m *mockMembershipRepo) Add(_ context.Context, mem *model.TeamMembership) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mem.ID == "" {
		mem.ID = uuid.NewString()
	}
	if mem.Status == "" {
		mem.Status = "ACTIVE"
	}
	m.members = append(m.members, *mem)
	return nil
}

func (m *mockMembershipRepo) ListActive(_ context.Context, teamID string) ([]model.TeamMembership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.TeamMembership
	for _, mem := range m.members {
		if mem.TeamID == teamID && mem.Status == "ACTIVE" {
			out = append(out, mem)
		}
	}
	return out, nil
}

func (m *mockMembershipRepo) CountActive(ctx context.Context, teamID string) (int, error) {
	list, _ := m.ListActive(ctx, teamID)
	return len(list), nil
}

// ── mock SubmissionRepository ──

type mockSubmissionRepo struct {
	mu   sync.Mutex
	subs map[string]*model.Submission // keyed team|user|week
}

func newMockSubmissionRepo() *mockSubmissionRepo {
	return &mockSubmissionRepo{subs: make(map[string]*model.Submission)}
}

func subKey(teamID, userID string, week time.Time) string {
	return teamID + "|" + userID + "|" + week.Format(time.RFC3339)
}

func (m *mockSubmissionRepo) Upsert(_ context.Context, sub *model.Submission) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := subKey(sub.TeamID, sub.UserID, sub.WeekStart)
	if existing, ok := m.subs[key]; ok {
		sub.ID = existing.ID
		sub.SubmittedAt = existing.SubmittedAt
		existing.Content = sub.Content
		existing.UserName = sub.UserName
		existing.UpdatedAt = sub.UpdatedAt
		return true, nil
	}
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	cp := *sub
	m.subs[key] = &cp
	return false, nil
}

func (m *mockSubmissionRepo) ListForWeek(_ context.Context, teamID string, weekStart time.Time) ([]model.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Submission
	for _, s := range m.subs {
		if s.TeamID == teamID && s.WeekStart.Equal(weekStart) {
			out = append(out, *s)
		}
	}
	return out, nil
}

// ── mock JobRepository ──

type mockJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*model.ScheduledPromptJob
}

func newMockJobRepo() *mockJobRepo {
	return &mockJobRepo{jobs: make(map[string]*model.ScheduledPromptJob)}
}

func (m *mockJobRepo) CreateIfAbsent(_ context.Context, job *model.ScheduledPromptJob) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.jobs {
		if j.TeamID == job.TeamID && j.WeekStart.Equal(job.WeekStart) && j.Status != model.JobCanceled {
			return false, nil
		}
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = model.JobPending
	}
	job.CreatedAt = time.Now().UTC()
	cp := *job
	m.jobs[job.ID] = &cp
	return true, nil
}

func (m *mockJobRepo) GetByID(_ context.Context, id string) (*model.ScheduledPromptJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[id]; ok {
		cp := *j
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockJobRepo) GetPending(_ context.Context, teamID string) (*model.ScheduledPromptJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.jobs {
		if j.TeamID == teamID && j.Status == model.JobPending {
			cp := *j
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockJobRepo) ListDue(_ context.Context, now time.Time, limit int) ([]model.ScheduledPromptJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ScheduledPromptJob
	for _, j := range m.jobs {
		if j.Status == model.JobPending && !j.ScheduledFor.After(now) {
			out = append(out, *j)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (m *mockJobRepo) ListByTeam(_ context.Context, teamID string) ([]model.ScheduledPromptJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ScheduledPromptJob
	for _, j := range m.jobs {
		if j.TeamID == teamID {
			out = append(out, *j)
		}
	}
	return out, nil
}

func (m *mockJobRepo) MarkAttempt(_ context.Context, id string, at time.Time, lastErr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[id]; ok {
		j.AttemptCount++
		j.LastAttemptAt = &at
		j.LastError = lastErr
	}
	return nil
}

func (m *mockJobRepo) Transition(_ context.Context, id string, to model.JobStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok || j.Status != model.JobPending {
		return false, nil
	}
	j.Status = to
	return true, nil
}

func (m *mockJobRepo) Rearm(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok || j.Status != model.JobFailed {
		return false, nil
	}
	j.Status = model.JobPending
	j.AttemptCount = 0
	j.LastError = ""
	return true, nil
}

// nonTerminalCount reports how many non-terminal jobs a team has.
func (m *mockJobRepo) nonTerminalCount(teamID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, j := range m.jobs {
		if j.TeamID == teamID && !j.Status.Terminal() {
			n++
		}
	}
	return n
}

// ── mock SummaryRepository ──

type mockSummaryRepo struct {
	mu        sync.Mutex
	summaries map[string]*model.WeeklySummary // keyed team|week
}

func newMockSummaryRepo() *mockSummaryRepo {
	return &mockSummaryRepo{summaries: make(map[string]*model.WeeklySummary)}
}

func sumKey(teamID string, week time.Time) string {
	return teamID + "|" + week.Format(time.RFC3339)
}

func (m *mockSummaryRepo) Get(_ context.Context, teamID string, weekStart time.Time) (*model.WeeklySummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.summaries[sumKey(teamID, weekStart)]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSummaryRepo) Create(_ context.Context, s *model.WeeklySummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := sumKey(s.TeamID, s.WeekStart)
	if _, ok := m.summaries[key]; ok {
		return errors.New("duplicate key uk_summary_team_week")
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	cp := *s
	m.summaries[key] = &cp
	return nil
}

func (m *mockSummaryRepo) UpdateCAS(_ context.Context, s *model.WeeklySummary, prevUpdatedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.summaries[sumKey(s.TeamID, s.WeekStart)]
	if !ok || !existing.UpdatedAt.Equal(prevUpdatedAt) {
		return false, nil
	}
	existing.Text = s.Text
	existing.TriggerType = s.TriggerType
	existing.UpdatedAt = s.UpdatedAt
	return true, nil
}

func (m *mockSummaryRepo) ListByTeam(_ context.Context, teamID string) ([]model.WeeklySummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.WeeklySummary
	for _, s := range m.summaries {
		if s.TeamID == teamID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *mockSummaryRepo) count(teamID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.summaries {
		if s.TeamID == teamID {
			n++
		}
	}
	return n
}

// ── fake capabilities ──

type fakeNotifier struct {
	mu       sync.Mutex
	calls    []model.Channel
	failures map[model.Channel]int // remaining failures per channel; -1 = always fail
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{failures: make(map[model.Channel]int)}
}

func (f *fakeNotifier) Send(_ context.Context, _ string, channel model.Channel, _ NotifyPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, channel)
	if n, ok := f.failures[channel]; ok && n != 0 {
		if n > 0 {
			f.failures[channel] = n - 1
		}
		return errors.New("channel unavailable")
	}
	return nil
}

func (f *fakeNotifier) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeGenerator struct {
	mu       sync.Mutex
	text     string
	failures int // remaining failures; -1 = always fail
	calls    int
}

func (f *fakeGenerator) Generate(_ context.Context, _ string, _ []SubmissionText) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failures != 0 {
		if f.failures > 0 {
			f.failures--
		}
		return "", errors.New("model overloaded")
	}
	return f.text, nil
}

func (f *fakeGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
