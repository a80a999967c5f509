// Package service provides the chat workspace, the admin directory and
// usage analytics.
package service

import "errors"

var (
	// ErrEmptyInput is returned by Submit for empty or whitespace-only
	// input. Callers treat it as a no-op.
	ErrEmptyInput = errors.New("empty input")

	// ErrReplyPending is returned by Submit while a reply is scheduled.
	// Callers treat it as a no-op.
	ErrReplyPending = errors.New("reply pending")

	// ErrPipelineClosed is returned by Submit after Close.
	ErrPipelineClosed = errors.New("pipeline closed")

	// ErrSessionNotFound is returned when appending to an unknown session.
	ErrSessionNotFound = errors.New("session not found")

	// ErrRecordNotFound is returned by directory lookups.
	ErrRecordNotFound = errors.New("record not found")

	// ErrDuplicateRecord is returned when creating a record whose id exists.
	ErrDuplicateRecord = errors.New("record already exists")

	// ErrConnectionInactive is returned when syncing a connection that is
	// not active.
	ErrConnectionInactive = errors.New("connection is not active")

	// ErrInvalidInput wraps directory and settings validation failures.
	ErrInvalidInput = errors.New("invalid input")
)
