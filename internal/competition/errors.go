package competition

import "errors"

// Lifecycle errors
var (
	ErrCompetitionExists = errors.New("a competition is already in progress")
	ErrNoCompetition     = errors.New("no competition has been created")
	ErrNotCreated        = errors.New("competition is not waiting to start")
	ErrNotStarted        = errors.New("competition has not started")
	ErrStaleTimer        = errors.New("timer belongs to a finished competition")
)

// Input errors
var (
	ErrEmptyText       = errors.New("competition text cannot be empty")
	ErrInvalidDuration = errors.New("competition duration must be positive")
)

// Participant errors
var (
	ErrWrongClass       = errors.New("student is not in the competition's class")
	ErrNotParticipant   = errors.New("connection is not a participant")
	ErrAlreadyCompleted = errors.New("participant already completed")
)
