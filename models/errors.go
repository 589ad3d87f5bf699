// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"errors"
	"fmt"
)

// Error kinds. Only validation errors abort a run; the rest are
// recorded per matcher.
var (
	ErrValidation = errors.New("validation failed")

	ErrInvalidVoteCount              = errors.New("number of votes must be positive")
	ErrInvalidPair                   = errors.New("invalid vote pair")
	ErrInsufficientUsers             = errors.New("not enough users")
	ErrInsufficientAvailableMatchers = errors.New("not enough available matchers")

	ErrTransport           = errors.New("transport error")
	ErrPreconditionFailure = errors.New("onboarding precondition not satisfied")
	ErrRemoteRejection     = errors.New("vote rejected")
	ErrNotSent             = errors.New("vote not sent")
)

// ValidationError reports bad input counts before any vote is sent.
// errors.Is matches both ErrValidation and Reason.
type ValidationError struct {
	Reason error
	Need   int
	Have   int
	Detail string
}

func (e *ValidationError) Error() string {
	switch {
	case e.Detail != "":
		return fmt.Sprintf("%v: %s", e.Reason, e.Detail)
	case e.Need > 0:
		return fmt.Sprintf("%v: need %d, have %d", e.Reason, e.Need, e.Have)
	default:
		return e.Reason.Error()
	}
}

func (e *ValidationError) Unwrap() []error {
	return []error{ErrValidation, e.Reason}
}
