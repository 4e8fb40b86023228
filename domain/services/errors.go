package services

import (
	"fmt"
	"strings"
)

// ValidationError reports missing or malformed input fields
type ValidationError struct {
	Fields  []string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Fields, ", "))
}

// InvalidIDError reports an identifier that is not a well-formed raffle ID
type InvalidIDError struct {
	ID string
}

func (e *InvalidIDError) Error() string {
	return fmt.Sprintf("invalid raffle id: %q", e.ID)
}

// NotFoundError reports a raffle that does not exist
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("raffle %s not found", e.ID)
}

// DuplicateParticipantError reports a participant that already holds a ticket
type DuplicateParticipantError struct {
	ParticipantID string
}

func (e *DuplicateParticipantError) Error() string {
	return fmt.Sprintf("participant %s is already registered for this raffle", e.ParticipantID)
}

// RaffleNotActiveError reports an operation that requires an active raffle
type RaffleNotActiveError struct {
	Status string
}

func (e *RaffleNotActiveError) Error() string {
	return fmt.Sprintf("raffle is not active (status: %s)", e.Status)
}

// InsufficientTicketsError reports a purchase larger than the remaining capacity
type InsufficientTicketsError struct {
	Requested int
	Available int
}

func (e *InsufficientTicketsError) Error() string {
	return fmt.Sprintf("insufficient tickets: requested %d, only %d available", e.Requested, e.Available)
}

// ThresholdNotMetError reports a conclusion attempt with too few correct entries
type ThresholdNotMetError struct {
	Have int
	Need int
}

func (e *ThresholdNotMetError) Error() string {
	return fmt.Sprintf("minimum participant threshold not met: have %d correct entries, need %d", e.Have, e.Need)
}

// StoreError wraps an underlying storage failure
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func storeError(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}
