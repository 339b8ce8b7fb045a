package entity

import "errors"

// Typed failures raised by the service layer. The HTTP layer maps
// these to status codes in lib/api/response.
var (
	ErrNotFound             = errors.New("not found")
	ErrAlreadyUsed          = errors.New("code already used")
	ErrAlreadyAssigned      = errors.New("code already assigned to a product")
	ErrAlreadyClaimed       = errors.New("code already claimed")
	ErrMismatch             = errors.New("code does not match memory id")
	ErrDuplicateCode        = errors.New("code already exists")
	ErrDuplicateEmail       = errors.New("email already registered")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrWrongCurrentPassword = errors.New("current password does not match")
	ErrPasswordTooShort     = errors.New("password must be at least 6 characters")
	ErrMissingConfig        = errors.New("storage configuration missing")
	ErrMissingParameters    = errors.New("missing required parameters")
	ErrTokenExpired         = errors.New("token expired")
	ErrTokenInvalid         = errors.New("token invalid")
	ErrUnauthorized         = errors.New("unauthorized")
)
