package led

import (
	"errors"
	"fmt"
)

// HwErrorKind classifies hardware write failures.
type HwErrorKind string

// Hardware error kinds.
const (
	KindInvalidArgument    HwErrorKind = "INVALID_ARGUMENT"
	KindTimeout            HwErrorKind = "TIMEOUT"
	KindDriverNotInstalled HwErrorKind = "DRIVER_NOT_INSTALLED"
	KindGeneric            HwErrorKind = "GENERIC"
)

// HwError is returned by drivers and sinks when a transmission fails.
type HwError struct {
	Kind  HwErrorKind
	Op    string
	Cause error
}

func (e *HwError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("led %s: %s: %v", e.Op, e.Kind, e.Cause)
	}
	return fmt.Sprintf("led %s: %s", e.Op, e.Kind)
}

func (e *HwError) Unwrap() error {
	return e.Cause
}

// Is matches any *HwError of the same kind, so errors.Is(err, ErrTimeout)
// works regardless of Op and Cause.
func (e *HwError) Is(target error) bool {
	t, ok := target.(*HwError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrInvalidArgument    = &HwError{Kind: KindInvalidArgument}
	ErrTimeout            = &HwError{Kind: KindTimeout}
	ErrDriverNotInstalled = &HwError{Kind: KindDriverNotInstalled}
	ErrGeneric            = &HwError{Kind: KindGeneric}
)

// NewHwError creates a new hardware error.
func NewHwError(kind HwErrorKind, op string, cause error) *HwError {
	return &HwError{Kind: kind, Op: op, Cause: cause}
}

// KindOf returns the kind of a hardware error, or KindGeneric for any other
// non-nil error.
func KindOf(err error) HwErrorKind {
	if err == nil {
		return ""
	}
	var hw *HwError
	if errors.As(err, &hw) {
		return hw.Kind
	}
	return KindGeneric
}
