package state

import "errors"

var (
	ErrNotActive          = errors.New("room is not in an active round")
	ErrUnknownPlayer      = errors.New("player is not in this room")
	ErrSubmissionInFlight = errors.New("a submission is already being scored")
	ErrAlreadyScored      = errors.New("player already scored this round")
)
