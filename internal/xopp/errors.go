package xopp

import (
	"errors"
	"fmt"
)

var (
	// ErrFormat matches any *FormatError.
	ErrFormat = errors.New("malformed document")
	// ErrIO matches any *IOError.
	ErrIO = errors.New("document i/o failure")
)

// FormatError reports an unreadable container or a document missing a
// required structural element.
type FormatError struct {
	Path   string
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Path, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FormatError) Unwrap() error { return e.Err }

func (e *FormatError) Is(target error) bool { return target == ErrFormat }

// IOError reports a failed open, read, write or close.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool { return target == ErrIO }

func formatErr(path, reason string, err error) error {
	return &FormatError{Path: path, Reason: reason, Err: err}
}

func ioErr(op, path string, err error) error {
	return &IOError{Op: op, Path: path, Err: err}
}
