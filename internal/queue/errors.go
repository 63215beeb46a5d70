package queue

import "errors"

var (
	ErrChallengeNotFound  = errors.New("challenge not found")
	ErrNoPendingChallenge = errors.New("no pending challenge")
	ErrCorruptQueue       = errors.New("corrupt challenge queue")
)
