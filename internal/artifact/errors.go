package artifact

import (
	"errors"
	"fmt"
)

var (
	// ErrFormat matches every *FormatError with errors.Is.
	ErrFormat = errors.New("format error")

	// ErrDuplicateName matches every *DuplicateNameError with errors.Is.
	ErrDuplicateName = errors.New("duplicate name")
)

// FormatError reports a malformed or semantically invalid definition document.
type FormatError struct {
	// Name of the offending definition, empty when the name itself is missing.
	Name string
	Msg  string
	Err  error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *FormatError) Unwrap() error { return e.Err }

func (e *FormatError) Is(target error) bool { return target == ErrFormat }

// Errorf builds a FormatError for the named definition.
func Errorf(name, format string, args ...any) *FormatError {
	return &FormatError{Name: name, Msg: fmt.Sprintf(format, args...)}
}

// DuplicateNameError reports a name that is already registered.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("duplicate definition name: %s", e.Name)
}

func (e *DuplicateNameError) Is(target error) bool { return target == ErrDuplicateName }
