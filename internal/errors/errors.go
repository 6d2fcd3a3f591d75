package errors

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/julianstephens/focusbot/internal/logger"
)

// Kind classifies a failure so callers can render a message without
// inspecting error strings.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindValidation
	KindPersistence
	KindCollaborator
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindPersistence:
		return "persistence"
	case KindCollaborator:
		return "collaborator"
	default:
		return "unknown"
	}
}

var (
	ErrNotFound     = stderrors.New("not found")
	ErrValidation   = stderrors.New("invalid input")
	ErrPersistence  = stderrors.New("storage failure")
	ErrCollaborator = stderrors.New("collaborator failure")
)

// NotFound wraps a message as a not-found error.
func NotFound(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

// Invalid wraps a message as a validation error.
func Invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrValidation)
}

// Persistence wraps a storage error.
func Persistence(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}

// Collaborator wraps a failure from an external collaborator (gateway, DM sink).
func Collaborator(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrCollaborator, err)
}

// KindOf reports the Kind of err.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case stderrors.Is(err, ErrNotFound):
		return KindNotFound
	case stderrors.Is(err, ErrValidation):
		return KindValidation
	case stderrors.Is(err, ErrPersistence):
		return KindPersistence
	case stderrors.Is(err, ErrCollaborator):
		return KindCollaborator
	default:
		return KindUnknown
	}
}

// Is is errors.Is, re-exported so callers importing this package need not
// also import the standard one.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

// Formatf formats an error message with a consistent "Error: " prefix using a format string
func Formatf(format string, args ...interface{}) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err)
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		os.Exit(1)
	}
}

// Fatalf logs and formats an error message, then exits the program with exit code 1
func Fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logger.Error("Command execution failed", "error", msg)
	fmt.Fprintf(os.Stderr, "%s\n", Formatf(format, args...))
	os.Exit(1)
}

// Result is the success/failure outcome shown to a user.
type Result struct {
	Success bool
	Kind    Kind
	Error   string
}

// ResultOf converts err into a Result. Persistence and unknown failures are
// reported generically so storage details never reach a chat channel.
func ResultOf(err error) Result {
	if err == nil {
		return Result{Success: true}
	}
	kind := KindOf(err)
	msg := err.Error()
	switch kind {
	case KindNotFound:
		msg = stripSentinel(msg, ErrNotFound)
	case KindValidation:
		msg = stripSentinel(msg, ErrValidation)
	case KindPersistence:
		msg = "Failed to save your changes. Please try again later."
	default:
		msg = "Something went wrong. Please try again later."
	}
	return Result{Kind: kind, Error: msg}
}

func stripSentinel(msg string, sentinel error) string {
	suffix := ": " + sentinel.Error()
	if len(msg) > len(suffix) && msg[len(msg)-len(suffix):] == suffix {
		return msg[:len(msg)-len(suffix)]
	}
	return msg
}
