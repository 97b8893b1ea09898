package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a requested row does not exist
	ErrNotFound = errors.New("not found")
	// ErrBacklogExhausted means the site has no pending keywords left
	ErrBacklogExhausted = errors.New("no more keywords")
	// ErrCancelled is recorded when a bulk run is stopped by the user
	ErrCancelled = errors.New("cancelled by user")
	// ErrInvalidOptions is returned for rejected generation options
	ErrInvalidOptions = errors.New("invalid generation options")
	// ErrSlugTaken means another article of the same site already uses the slug
	ErrSlugTaken = errors.New("slug already used on this site")
	// ErrInvalidTransition is returned for a status change the lifecycle forbids
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ProviderError wraps a failed or unusable call to an external provider
type ProviderError struct {
	Provider string
	Op       string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// PersistenceError wraps a failed datastore write
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
