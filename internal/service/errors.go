package service

import "errors"

var (
	ErrTeamNotFound            = errors.New("team not found")
	ErrSummaryNotFound         = errors.New("summary not found")
	ErrNoSubmissions           = errors.New("no submissions for week")
	ErrDispatchFailed          = errors.New("prompt dispatch failed on all channels")
	ErrSummaryGenerationFailed = errors.New("summary generation failed")
	ErrJobNotRearmable         = errors.New("job is not in a failed state")
)
