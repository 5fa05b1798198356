package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestIsMatchesByCode(t *testing.T) {
	err := Newf(CodeDegenerateCrop, "width %v", -10)
	if !errors.Is(err, ErrDegenerateCrop) {
		t.Fatal("expected errors.Is to match on code")
	}
	if errors.Is(err, ErrOutOfRange) {
		t.Fatal("different codes must not match")
	}

	wrapped := fmt.Errorf("crop page 3: %w", err)
	if !errors.Is(wrapped, ErrDegenerateCrop) {
		t.Fatal("expected match through fmt wrapping")
	}
	if got := CodeOf(wrapped); got != CodeDegenerateCrop {
		t.Errorf("CodeOf = %q", got)
	}
}

func TestUnwrapCause(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(CodeWrongPassword, "decrypt", cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected cause in chain")
	}
	if err.Error() != "[WRONG_PASSWORD] decrypt: boom" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{ErrInvalidMetrics, http.StatusBadRequest},
		{ErrDegenerateCrop, http.StatusBadRequest},
		{ErrOutOfRange, http.StatusBadRequest},
		{ErrNoPlacement, http.StatusConflict},
		{ErrPageLocked, http.StatusConflict},
		{ErrNotFound, http.StatusNotFound},
		{ErrWrongPassword, http.StatusForbidden},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestWithContext(t *testing.T) {
	err := New(CodeOutOfRange, "x").With("page", 2)
	if err.Context["page"] != 2 {
		t.Errorf("context = %v", err.Context)
	}
}
