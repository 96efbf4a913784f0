package apperrors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestCollaboratorErrorUnwrap(t *testing.T) {
	cause := errors.New("exit status 1")
	err := fmt.Errorf("load audio: %w", &CollaboratorError{
		Collaborator: "ffmpeg",
		Stage:        "load",
		ExitCode:     1,
		Stderr:       "invalid data found",
		Cause:        cause,
	})

	var ce *CollaboratorError
	if !errors.As(err, &ce) {
		t.Fatal("expected CollaboratorError in chain")
	}
	if ce.Collaborator != "ffmpeg" {
		t.Errorf("Collaborator = %q, want ffmpeg", ce.Collaborator)
	}
	if !errors.Is(err, cause) {
		t.Error("cause not reachable through Unwrap")
	}
	if !strings.Contains(err.Error(), "exit 1") || !strings.Contains(err.Error(), "invalid data found") {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestCollaboratorErrorMessageFallsBackToCause(t *testing.T) {
	err := NewCollaboratorError("demucs", "stem_separation", errors.New("no such file"))
	want := "demucs failed at stem_separation: no such file"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestInsufficient(t *testing.T) {
	err := Insufficient("need %d beats, got %d", 4, 2)
	if !errors.Is(err, ErrInsufficientSignal) {
		t.Fatal("expected ErrInsufficientSignal")
	}
	if !IsInsufficient(err) || !IsInsufficient(ErrEmptySignal) {
		t.Error("IsInsufficient should match both sentinels")
	}
	if IsInsufficient(ErrFileTooLarge) {
		t.Error("IsInsufficient matched an unrelated sentinel")
	}
}
