package releaseerr

import (
	"errors"
	"fmt"
	"os"
	"testing"
)

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "message only",
			err:      New(CodeStage, "source path %s not found", "/src"),
			expected: "ESTAGE: source path /src not found",
		},
		{
			name:     "with details sorted",
			err:      New(CodeArchive, "archiver failed").WithDetail("exit_code", "12").WithDetail("command", "zip"),
			expected: "EZIP: archiver failed (command=zip, exit_code=12)",
		},
		{
			name:     "wrapped cause",
			err:      Wrap(os.ErrNotExist, CodeCleanup, "removing staged tree"),
			expected: "ECLEANUP: removing staged tree: file does not exist",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, expected %q", got, tt.expected)
			}
		})
	}
}

func TestCodeOf(t *testing.T) {
	base := New(CodeArchive, "no archive")
	wrapped := fmt.Errorf("publish: %w", base)

	if got := CodeOf(wrapped); got != CodeArchive {
		t.Errorf("CodeOf(wrapped) = %q, expected %q", got, CodeArchive)
	}
	if got := CodeOf(errors.New("plain")); got != "" {
		t.Errorf("CodeOf(plain) = %q, expected empty", got)
	}
	if got := CodeOf(nil); got != "" {
		t.Errorf("CodeOf(nil) = %q, expected empty", got)
	}
}

func TestIs(t *testing.T) {
	err := Wrap(os.ErrPermission, CodeStage, "writing file")

	if !Is(err, CodeStage) {
		t.Error("Is(err, CodeStage) should be true")
	}
	if Is(err, CodeArchive) {
		t.Error("Is(err, CodeArchive) should be false")
	}
	if Is(nil, CodeStage) {
		t.Error("Is(nil, CodeStage) should be false")
	}
	if !errors.Is(err, os.ErrPermission) {
		t.Error("wrapped cause should be reachable through errors.Is")
	}
}
