package scheduler

import (
	"errors"
	"fmt"
)

// ErrCode identifies a scheduler error.
type ErrCode string

// Scheduler error codes.
const (
	ErrCodeQueueFull        ErrCode = "QUEUE_FULL"
	ErrCodeCommandQueueFull ErrCode = "COMMAND_QUEUE_FULL"
	ErrCodeNoSuchLed        ErrCode = "NO_SUCH_LED"
	ErrCodeBusy             ErrCode = "BUSY"
	ErrCodeNotImplemented   ErrCode = "NOT_IMPLEMENTED"
	ErrCodeInvalidCommand   ErrCode = "INVALID_COMMAND"
	ErrCodeInvalidPattern   ErrCode = "INVALID_PATTERN"
	ErrCodeAlreadyRunning   ErrCode = "ALREADY_RUNNING"
)

// Error is returned by the scheduler's producer-facing operations.
type Error struct {
	Code    ErrCode
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors by code, so errors.Is(err, ErrBusy) holds for any busy error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrQueueFull        = &Error{Code: ErrCodeQueueFull, Message: "pattern queue is full"}
	ErrCommandQueueFull = &Error{Code: ErrCodeCommandQueueFull, Message: "command queue is full"}
	ErrNoSuchLed        = &Error{Code: ErrCodeNoSuchLed, Message: "no such led"}
	ErrBusy             = &Error{Code: ErrCodeBusy, Message: "scheduler is driving the leds"}
	ErrNotImplemented   = &Error{Code: ErrCodeNotImplemented, Message: "not implemented"}
	ErrInvalidCommand   = &Error{Code: ErrCodeInvalidCommand, Message: "invalid command"}
	ErrInvalidPattern   = &Error{Code: ErrCodeInvalidPattern, Message: "invalid pattern"}
	ErrAlreadyRunning   = &Error{Code: ErrCodeAlreadyRunning, Message: "scheduler is already running"}
)

func newError(code ErrCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// HasCode reports whether err is a scheduler error with the given code.
func HasCode(err error, code ErrCode) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
