// Package common defines shared constants and sentinel errors used across
// instalatrack layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")

	// Validation errors: the operation is aborted before anything is written.
	ErrValidation = errors.New("validation error")

	// Remote availability and auth.
	ErrUnavailable           = errors.New("remote unavailable")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrSessionExpired        = errors.New("session expired")
	ErrInvalidToken          = errors.New("invalid token")
	ErrLocalDataNotAvailable = errors.New("local data unavailable")

	// Sync errors.
	ErrNotRemoteID       = errors.New("identifier is not a remote id")
	ErrProjectNotSynced  = errors.New("project not synced yet")
	ErrRevisionConflict  = errors.New("revision conflict")
	ErrNothingToUndo     = errors.New("nothing to undo")
	ErrVersionNotInScope = errors.New("version belongs to another installation")
)
