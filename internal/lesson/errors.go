package lesson

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNothingDue          = errors.New("lesson: nothing due")
	ErrSessionActive       = errors.New("lesson: a session is already active")
	ErrNoSession           = errors.New("lesson: no active session")
	ErrSessionClosed       = errors.New("lesson: session already ended")
	ErrStoreWrite          = errors.New("lesson: store write failed")
	ErrUserExists          = errors.New("lesson: user already registered")
	ErrUnknownUser         = errors.New("lesson: user not registered")
	ErrTrackInitialized    = errors.New("lesson: track already initialized")
	ErrTrackNotInitialized = errors.New("lesson: track not initialized")
	ErrTierNotUnlocked     = errors.New("lesson: tier not unlocked")
	ErrInvalidHour         = errors.New("lesson: hour must be between 0 and 23")
	ErrUnexpectedInput     = errors.New("lesson: input does not fit the current step")
)

// NothingDueError is returned by StartSession when the queue holds nothing
// inside the window. NextDueAt is zero when the queue is empty.
type NothingDueError struct {
	NextDueAt time.Time
}

func (e *NothingDueError) Error() string {
	if e.NextDueAt.IsZero() {
		return "lesson: nothing due, queue is empty"
	}
	return fmt.Sprintf("lesson: nothing due until %s", e.NextDueAt.Format(time.RFC3339))
}

func (e *NothingDueError) Is(target error) bool {
	return target == ErrNothingDue
}

// IsRetryable reports whether err came from a failed store write. The session
// is left where it was, so the same input can be sent again.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreWrite)
}

func storeWriteError(err error) error {
	return fmt.Errorf("%w: %w", ErrStoreWrite, err)
}
