package domain

import "errors"

var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrForbidden            = errors.New("forbidden")
	ErrInvalidState         = errors.New("invalid state transition")
	ErrTaskNotFound         = errors.New("task not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrNoEligibleAssignee   = errors.New("no eligible assignee")
	ErrSchemaViolation      = errors.New("event schema violation")
	ErrMissingEventName     = errors.New("message has no event_name")
	ErrDuplicateTransaction = errors.New("transaction already recorded")
)
