package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ValidationError rejects a request before any write happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// InsufficientFundsError is returned with the guarantee that no partial
// write occurred.
type InsufficientFundsError struct {
	AccountType AccountType
	Available   decimal.Decimal
	Requested   decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient %s balance: available %s, requested %s",
		e.AccountType, e.Available.String(), e.Requested.String())
}

type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return e.Entity + " not found: " + e.ID
}

func NotFound(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// ConflictError marks an expected race outcome (entity already processed).
// Callers treat it as a no-op, not corruption.
type ConflictError struct {
	Entity string
	Reason string
}

func (e *ConflictError) Error() string {
	return e.Entity + ": " + e.Reason
}

func Conflict(entity, reason string) error {
	return &ConflictError{Entity: entity, Reason: reason}
}
