package service

import (
	"errors"
	"fmt"

	"github.com/ifuryst/affpress/internal/models"
)

var (
	ErrNotFound              = errors.New("content item not found")
	ErrInvalidTransition     = errors.New("invalid content status transition")
	ErrEmptyBody             = errors.New("content body is empty")
	ErrGenerationUnavailable = errors.New("content generation unavailable")
	ErrAlreadyRunning        = errors.New("already running")
)

// StorageError reports a failure of the persistence medium.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// InvalidTransitionError is returned when a transition is attempted on an item that is not a draft.
type InvalidTransitionError struct {
	ID   string
	From models.ContentStatus
	To   models.ContentStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("content %s: cannot move from %s to %s", e.ID, e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
