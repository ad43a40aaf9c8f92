package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a domain error for transport mapping
type Kind string

const (
	KindValidation      Kind = "validation"
	KindUnauthenticated Kind = "unauthenticated"
	KindForbidden       Kind = "forbidden"
	KindNotFound        Kind = "not_found"
	KindConflict        Kind = "conflict"
	KindInvalidState    Kind = "invalid_state"
	KindFatal           Kind = "fatal"
)

// Error is the error type returned by services and repositories.
// Two errors are considered equal by errors.Is when their codes match,
// so a field-specific conflict still matches its sentinel.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Field   string
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Field)
	}
	return e.Message
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

var (
	ErrNotFound              = &Error{Kind: KindNotFound, Code: "NotFound", Message: "resource not found"}
	ErrInvalidCredentials    = &Error{Kind: KindUnauthenticated, Code: "InvalidCredentials", Message: "invalid email or password"}
	ErrAccountNotActive      = &Error{Kind: KindUnauthenticated, Code: "AccountNotActive", Message: "account is not active"}
	ErrUnauthenticated       = &Error{Kind: KindUnauthenticated, Code: "Unauthenticated", Message: "authentication required"}
	ErrInvalidToken          = &Error{Kind: KindUnauthenticated, Code: "InvalidToken", Message: "invalid token"}
	ErrExpiredToken          = &Error{Kind: KindUnauthenticated, Code: "ExpiredToken", Message: "token has expired"}
	ErrForbidden             = &Error{Kind: KindForbidden, Code: "Forbidden", Message: "insufficient permissions"}
	ErrAlreadyArchived       = &Error{Kind: KindInvalidState, Code: "AlreadyArchived", Message: "employee is already archived"}
	ErrAlreadyDeleted        = &Error{Kind: KindInvalidState, Code: "AlreadyDeleted", Message: "employee is already deleted"}
	ErrNotDeleted            = &Error{Kind: KindInvalidState, Code: "NotDeleted", Message: "employee is not deleted"}
	ErrAlreadyRegistered     = &Error{Kind: KindInvalidState, Code: "AlreadyRegistered", Message: "employee has already completed registration"}
	ErrInvitationAlreadySent = &Error{Kind: KindInvalidState, Code: "InvitationAlreadySent", Message: "an invitation is already pending for this email"}
	ErrInvitationExpired     = &Error{Kind: KindInvalidState, Code: "InvitationExpired", Message: "invitation has expired"}
	ErrInvalidInvitation     = &Error{Kind: KindValidation, Code: "InvalidInvitation", Message: "invalid invitation token"}
	ErrInvalidTransition     = &Error{Kind: KindInvalidState, Code: "InvalidTransition", Message: "status transition is not allowed"}
	ErrEmployeeArchived      = &Error{Kind: KindInvalidState, Code: "EmployeeArchived", Message: "employee is archived, unarchive before changing status"}
	ErrConcurrentUpdate      = &Error{Kind: KindConflict, Code: "ConcurrentUpdate", Message: "record was modified concurrently, retry the request"}
)

// Validation builds a ValidationError for a specific input field
func Validation(field, message string) *Error {
	return &Error{Kind: KindValidation, Code: "ValidationError", Message: message, Field: field}
}

// Conflict builds a uniqueness Conflict naming the offending field
func Conflict(field string) *Error {
	return &Error{Kind: KindConflict, Code: "Conflict", Message: field + " already exists", Field: field}
}

// IsKind reports whether err (or anything it wraps) is a domain error of the given kind
func IsKind(err error, kind Kind) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind == kind
	}
	return false
}

// IsConflictOn reports whether err is a uniqueness conflict on field
func IsConflictOn(err error, field string) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind == KindConflict && de.Code == "Conflict" && de.Field == field
	}
	return false
}
