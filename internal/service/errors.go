package service

import (
	"errors"
	"fmt"
)

// Error kinds. Every error a service returns to a handler unwraps to one of
// these, which decides the HTTP status.
var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidInvitation = errors.New("invalid invitation")
	ErrTooManyRequests   = errors.New("too many requests")
	ErrExternalService   = errors.New("external service failure")
)

// Error is a user-facing message tagged with its kind.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

var (
	ErrUserAlreadyExists  = newError(ErrConflict, "user with this email already exists")
	ErrUserNotFound       = newError(ErrNotFound, "user not found")
	ErrInvalidCredentials = newError(ErrUnauthorized, "invalid email or password")
	ErrAccountSuspended   = newError(ErrUnauthorized, "account is suspended")
	ErrInvitationPending  = newError(ErrUnauthorized, "account invitation has not been accepted yet")

	ErrOTPRejected      = newError(ErrInvalidInput, "invalid verification code")
	ErrOTPExpired       = newError(ErrInvalidInput, "verification code has expired, request a new one")
	ErrPasswordMismatch = newError(ErrInvalidInput, "passwords do not match")
	ErrPasswordTooShort = newError(ErrInvalidInput, "password must be at least %d characters", MinPasswordLength)
	ErrPasswordTooLong  = newError(ErrInvalidInput, "password must be at most %d bytes", MaxPasswordLength)
	ErrInvalidRole      = newError(ErrInvalidInput, "role must be resident or admin")
	ErrInvalidPhone     = newError(ErrInvalidInput, "invalid phone number")

	ErrInvitationInvalid = newError(ErrInvalidInvitation, "invitation is invalid or has already been accepted")

	ErrOTPThrottled     = newError(ErrTooManyRequests, "too many verification requests, please try again later")
	ErrOTPUnavailable   = newError(ErrExternalService, "verification service is unavailable, please try again later")
	ErrMailUnavailable  = newError(ErrExternalService, "mail service is unavailable")
	ErrSelfSuspend      = newError(ErrForbidden, "admins cannot suspend their own account")
	ErrSelfRoleChange   = newError(ErrForbidden, "admins cannot change their own role")
	ErrAdminSelfSignup  = newError(ErrInvalidInput, "admin accounts cannot be self-registered")
	ErrAttemptReviewed  = newError(ErrInvalidInput, "attempt has already been reviewed")
	ErrTaskInactive     = newError(ErrInvalidInput, "voucher task is not active")
	ErrProductNotFound  = newError(ErrNotFound, "product not found")
	ErrTaskNotFound     = newError(ErrNotFound, "voucher task not found")
	ErrAttemptNotFound  = newError(ErrNotFound, "task attempt not found")
	ErrRequestNotFound  = newError(ErrNotFound, "product request not found")
	ErrProofNotFound    = newError(ErrNotFound, "proof not found for this attempt")
	ErrNotAttemptOwner  = newError(ErrForbidden, "forbidden: attempt belongs to another user")
	ErrInvalidFile      = newError(ErrInvalidInput, "invalid file format. only .jpg, .png, .pdf are allowed")
	ErrFileSizeExceeded = newError(ErrInvalidInput, "file size exceeds limit")
)

// Accepted password lengths. bcrypt rejects input longer than 72 bytes.
const (
	MinPasswordLength = 6
	MaxPasswordLength = 72
)

func checkPasswordLength(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > MaxPasswordLength {
		return ErrPasswordTooLong
	}
	return nil
}

func validateNewPassword(password, confirm string) error {
	if password != confirm {
		return ErrPasswordMismatch
	}
	return checkPasswordLength(password)
}
