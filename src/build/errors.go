package build

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a job failed.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindInputInvalid
	KindToolUnavailable
	KindUnsupportedFormat
	KindBackupFailed
	KindTimeout
	KindCancelled
	KindNonZeroExit
	KindUnexpected
	KindDependencyMissing
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "None"
	case KindInputInvalid:
		return "InputInvalid"
	case KindToolUnavailable:
		return "ToolUnavailable"
	case KindUnsupportedFormat:
		return "UnsupportedFormatForOS"
	case KindBackupFailed:
		return "ArtifactBackupFailed"
	case KindTimeout:
		return "ProcessTimeout"
	case KindCancelled:
		return "ProcessCancelled"
	case KindNonZeroExit:
		return "ProcessNonZeroExit"
	case KindDependencyMissing:
		return "DependencyMissing"
	default:
		return "UnexpectedException"
	}
}

// Error is a classified job failure.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds an Error of the given kind.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under kind with a message prefix.
func Wrap(kind ErrorKind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind carried by err, KindNone for nil and
// KindUnexpected for unclassified errors.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}
