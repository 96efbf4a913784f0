package apperrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for expected failure modes
var (
	ErrEmptySignal        = errors.New("empty signal")
	ErrInsufficientSignal = errors.New("insufficient signal")
	ErrUnsupportedFormat  = errors.New("unsupported format")
	ErrFileTooLarge       = errors.New("file exceeds size limit")
	ErrJobNotFound        = errors.New("job not found")
	ErrToolNotInstalled   = errors.New("required tool not installed")
)

// CollaboratorError represents a failure in an external collaborator such as
// the audio loader or the stem separator
type CollaboratorError struct {
	Collaborator string // "ffmpeg", "demucs", "wav"
	Stage        string // "load", "stem_separation"
	ExitCode     int
	Stderr       string
	Cause        error
}

func (e *CollaboratorError) Error() string {
	msg := fmt.Sprintf("%s failed at %s", e.Collaborator, e.Stage)
	if e.ExitCode != 0 {
		msg += fmt.Sprintf(" (exit %d)", e.ExitCode)
	}
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	} else if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *CollaboratorError) Unwrap() error {
	return e.Cause
}

// NewCollaboratorError creates a CollaboratorError
func NewCollaboratorError(collaborator, stage string, cause error) *CollaboratorError {
	return &CollaboratorError{
		Collaborator: collaborator,
		Stage:        stage,
		Cause:        cause,
	}
}

// Insufficient wraps ErrInsufficientSignal with what was missing
func Insufficient(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInsufficientSignal, fmt.Sprintf(format, args...))
}

// IsInsufficient reports whether err stems from too little signal to analyse
func IsInsufficient(err error) bool {
	return errors.Is(err, ErrInsufficientSignal) || errors.Is(err, ErrEmptySignal)
}
