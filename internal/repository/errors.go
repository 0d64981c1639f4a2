package repository

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrConflict indicates a uniqueness constraint rejected the write.
	ErrConflict = errors.New("repository: conflict")
	// ErrTokenUsed indicates a single-use token was already consumed or revoked.
	ErrTokenUsed = errors.New("repository: token already used")
)
