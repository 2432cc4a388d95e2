package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrAlreadyConfirmed   = errors.New("already confirmed")
	ErrVerificationFailed = errors.New("session code verification failed")
	ErrNotParticipant     = errors.New("user is not a participant of the trade")
	ErrInvalidCard        = errors.New("invalid card")
	ErrPersistence        = errors.New("persistence failure")
)

// TransitionError reports an event that the trade's current status does not accept.
type TransitionError struct {
	From  TradeStatus
	Event string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition: %s not allowed in status %s", e.Event, e.From)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// PersistenceError wraps a storage collaborator failure. It is never retried by the core.
type PersistenceError struct {
	Op  string
	Err error
}

func NewPersistenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}
