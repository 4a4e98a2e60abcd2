package domain

import "errors"

var (
	ErrInvalidTransition = errors.New("invalid session status transition")
	ErrTerminalState     = errors.New("session is in a terminal state")
	ErrAlreadyRedeemed   = errors.New("session redemption already recorded")
)
