package service

import (
	"errors"
	"fmt"
)

// Sentinels crossing the service boundary. Handlers map these to HTTP
// status codes; nothing below the handler layer knows about HTTP.
var (
	ErrNotFound            = errors.New("not found")
	ErrForbidden           = errors.New("forbidden")
	ErrValidation          = errors.New("validation failed")
	ErrChatNotJoinable     = errors.New("chat is not joinable")
	ErrInvalidUser         = errors.New("unknown staff member")
	ErrPastDate            = errors.New("date is in the past")
	ErrUnknownPreset       = errors.New("unknown schedule preset")
	ErrAttachmentLimit     = errors.New("attachment limit exceeded")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrRateLimited         = errors.New("too many chat starts")
	ErrBadCredentials      = errors.New("invalid username or password")
)

// ValidationError carries the human-readable reason for a rejected input.
// errors.Is(err, ErrValidation) matches it.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}
