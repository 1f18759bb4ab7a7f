package domain

import "errors"

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUnknownUserType   = errors.New("unknown user type")
	ErrUnknownPermission = errors.New("unknown permission")
	ErrFormNotFound      = errors.New("form session not found")
	ErrNotEditing        = errors.New("no record is being edited")
	ErrForbidden         = errors.New("access forbidden")
	ErrInvalidClaims     = errors.New("invalid token claims")
)
