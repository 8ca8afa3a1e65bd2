package service

import (
	"context"
	"time"

	"speedy-status/internal/repository"
)

// TrackerStatus is the read-side view of submission completeness for one
// team-week.
type TrackerStatus struct {
	SubmittedCount      int
	RosterSize          int
	EarliestSubmittedAt *time.Time
	AllSubmitted        bool
}

// SubmissionTracker computes completeness on demand from submission rows.
// It never mutates; edits that replaced a member's submission are already
// collapsed to one row per (team, user, week) by the intake path.
type SubmissionTracker struct {
	subs    repository.SubmissionRepository
	members repository.MembershipRepository
}

func NewSubmissionTracker(repo *repository.Repository) *SubmissionTracker {
	return &SubmissionTracker{subs: repo.Submission, members: repo.Membership}
}

func (t *SubmissionTracker) Status(ctx context.Context, teamID string, weekStart time.Time) (TrackerStatus, error) {
	roster, err := t.members.CountActive(ctx, teamID)
	if err != nil {
		return TrackerStatus{}, err
	}
	subs, err := t.subs.ListForWeek(ctx, teamID, weekStart)
	if err != nil {
		return TrackerStatus{}, err
	}

	st := TrackerStatus{SubmittedCount: len(subs), RosterSize: roster}
	for i := range subs {
		at := subs[i].SubmittedAt
		if st.EarliestSubmittedAt == nil || at.Before(*st.EarliestSubmittedAt) {
			st.EarliestSubmittedAt = &at
		}
	}
	st.AllSubmitted = roster > 0 && st.SubmittedCount >= roster
	return st, nil
}
