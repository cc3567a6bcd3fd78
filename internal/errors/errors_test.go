package errors

import (
	"fmt"
	"io"
	"testing"
)

func TestVoiceError_Error(t *testing.T) {
	err := &VoiceError{Code: ErrNotFound, Status: 404, Message: "transcription not found: 7"}

	expected := "NOT_FOUND: transcription not found: 7"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestVoiceError_ErrorWithCause(t *testing.T) {
	err := NewTranscriptionFailed(io.ErrUnexpectedEOF)

	expected := "TRANSCRIPTION_FAILED: transcription failed: unexpected EOF"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
	if err.Status != 502 {
		t.Errorf("Status = %d, want 502", err.Status)
	}
}

func TestNewNotFound(t *testing.T) {
	err := NewNotFound(42)

	if err.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrNotFound)
	}
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
	if err.Details["id"] != int64(42) {
		t.Errorf("Details[id] = %v, want 42", err.Details["id"])
	}
}

func TestNewStorage(t *testing.T) {
	err := NewStorage("insert transcription", io.EOF)

	if err.Code != ErrStorage {
		t.Errorf("Code = %q, want %q", err.Code, ErrStorage)
	}
	if err.Details["op"] != "insert transcription" {
		t.Errorf("Details[op] = %v", err.Details["op"])
	}
}

func TestCaptureErrorsAreDistinct(t *testing.T) {
	cases := []struct {
		err    *VoiceError
		code   ErrorCode
		status int
	}{
		{NewDeviceUnavailable(nil), ErrDeviceUnavailable, 503},
		{NewPermissionDenied(nil), ErrPermissionDenied, 403},
		{NewCaptureError(nil), ErrCapture, 500},
		{NewAlreadyRecording(), ErrAlreadyRecording, 409},
		{NewNotRecording(), ErrNotRecording, 409},
	}
	for _, tc := range cases {
		if tc.err.Code != tc.code {
			t.Errorf("Code = %q, want %q", tc.err.Code, tc.code)
		}
		if tc.err.Status != tc.status {
			t.Errorf("%s: Status = %d, want %d", tc.code, tc.err.Status, tc.status)
		}
	}
}

func TestIs(t *testing.T) {
	err := NewNotFound(1)

	if !Is(err, ErrNotFound) {
		t.Error("Is(err, ErrNotFound) = false, want true")
	}
	if Is(err, ErrInvalidRequest) {
		t.Error("Is(err, ErrInvalidRequest) = true, want false")
	}
	if Is(fmt.Errorf("plain error"), ErrNotFound) {
		t.Error("Is(plain error, ErrNotFound) = true, want false")
	}
}

func TestIs_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("stop: %w", NewNotRecording())

	if !Is(wrapped, ErrNotRecording) {
		t.Error("Is(wrapped, ErrNotRecording) = false, want true")
	}
}

func TestUnwrap(t *testing.T) {
	err := NewInjectionFailed(io.ErrClosedPipe)

	if err.Unwrap() != io.ErrClosedPipe {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), io.ErrClosedPipe)
	}
}

func TestStatus(t *testing.T) {
	if got := Status(NewInvalidRequest("bad")); got != 400 {
		t.Errorf("Status = %d, want 400", got)
	}
	if got := Status(fmt.Errorf("boom")); got != 500 {
		t.Errorf("Status(plain) = %d, want 500", got)
	}
}

func TestAs(t *testing.T) {
	if got := As(NewNotFound(3)); got.Code != ErrNotFound {
		t.Errorf("As().Code = %q, want %q", got.Code, ErrNotFound)
	}
	if got := As(fmt.Errorf("boom")); got.Code != ErrInternal || got.Message != "boom" {
		t.Errorf("As(plain) = %+v", got)
	}
}
