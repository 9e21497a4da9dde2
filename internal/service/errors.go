package service

import (
	"errors"
	"fmt"
)

// ErrValidation is wrapped by every input validation failure; the wrapped
// message is safe to return to the caller.
var ErrValidation = errors.New("invalid input")

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already taken")
	ErrForbidden          = errors.New("admin access required")
	ErrPOINotFound        = errors.New("poi not found")
	ErrUserNotFound       = errors.New("user not found")

	ErrEmailRequired    = fmt.Errorf("%w: email is required", ErrValidation)
	ErrEmailInvalid     = fmt.Errorf("%w: email is invalid", ErrValidation)
	ErrPasswordTooShort = fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLength)
	ErrInvalidRole      = fmt.Errorf("%w: role must be admin or user", ErrValidation)
	ErrInvalidCursor    = fmt.Errorf("%w: invalid lastDoc cursor", ErrValidation)
	ErrBulkEmpty        = fmt.Errorf("%w: pois must be a non-empty array", ErrValidation)
	ErrBulkTooLarge     = fmt.Errorf("%w: at most %d pois per bulk request", ErrValidation, MaxBulkSize)
	ErrQueryIncomplete  = fmt.Errorf("%w: encryptedLat and encryptedLng are required", ErrValidation)
	ErrInvalidRadius    = fmt.Errorf("%w: radius must be a positive number of meters", ErrValidation)
)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
