package models

import "errors"

var (
	ErrUnauthorized     = errors.New("unauthorized access")
	ErrForbidden        = errors.New("forbidden access")
	ErrDuplicateAttempt = errors.New("test already exists for this quiz and email")
	ErrNotFound         = errors.New("not found")
	ErrInvalidID        = errors.New("invalid id")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrEmptyPatch       = errors.New("nothing to update")
	ErrBadRequest       = errors.New("bad request")
)
