package domain

import "errors"

// Domain errors
var (
	ErrCollectionNotFound  = errors.New("collection not found")
	ErrEntryNotFound       = errors.New("collection entry not found")
	ErrGameNotFound        = errors.New("game not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrDuplicateCollection = errors.New("collection name already exists for this user")
	ErrDuplicateEntry      = errors.New("game already exists in collection")
	ErrUsernameTaken       = errors.New("username already taken")
	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenExpired        = errors.New("token has expired")
	ErrUpstream            = errors.New("upstream catalog request failed")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrInternalError       = errors.New("internal server error")
)

// IsNotFoundError checks if an error is a not-found type error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrCollectionNotFound) ||
		errors.Is(err, ErrEntryNotFound) ||
		errors.Is(err, ErrGameNotFound) ||
		errors.Is(err, ErrUserNotFound)
}

// IsConflictError reports unique-constraint style failures.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrDuplicateCollection) ||
		errors.Is(err, ErrDuplicateEntry) ||
		errors.Is(err, ErrUsernameTaken) ||
		errors.Is(err, ErrEmailTaken)
}

// ValidationError carries a field-level reason for a rejected request.
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

// Is lets callers match any validation failure against ErrInvalidRequest.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidRequest
}
