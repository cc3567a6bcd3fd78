package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode identifies a failure class of the dictation pipeline or its stores.
type ErrorCode string

const (
	ErrDeviceUnavailable   ErrorCode = "DEVICE_UNAVAILABLE"   // 503
	ErrPermissionDenied    ErrorCode = "PERMISSION_DENIED"    // 403
	ErrCapture             ErrorCode = "CAPTURE_ERROR"        // 500
	ErrAlreadyRecording    ErrorCode = "ALREADY_RECORDING"    // 409
	ErrNotRecording        ErrorCode = "NOT_RECORDING"        // 409
	ErrTranscriptionFailed ErrorCode = "TRANSCRIPTION_FAILED" // 502
	ErrFormattingFailed    ErrorCode = "FORMATTING_FAILED"    // 502
	ErrInjectionFailed     ErrorCode = "INJECTION_FAILED"     // 500
	ErrStorage             ErrorCode = "STORAGE_ERROR"        // 500
	ErrNotFound            ErrorCode = "NOT_FOUND"            // 404
	ErrInvalidRequest      ErrorCode = "INVALID_REQUEST"      // 400
	ErrInternal            ErrorCode = "INTERNAL"             // 500
)

// VoiceError is a structured error with code, HTTP status and details.
type VoiceError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	Err     error
}

// Error implements the error interface.
func (e *VoiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *VoiceError) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, status int, msg string, err error) *VoiceError {
	return &VoiceError{Code: code, Status: status, Message: msg, Err: err}
}

// NewDeviceUnavailable reports a missing or busy input device.
func NewDeviceUnavailable(err error) *VoiceError {
	return newError(ErrDeviceUnavailable, http.StatusServiceUnavailable, "microphone not found or unavailable", err)
}

// NewPermissionDenied reports that the OS refused microphone access.
func NewPermissionDenied(err error) *VoiceError {
	return newError(ErrPermissionDenied, http.StatusForbidden, "microphone permission denied", err)
}

// NewCaptureError reports any other audio device failure.
func NewCaptureError(err error) *VoiceError {
	return newError(ErrCapture, http.StatusInternalServerError, "audio capture failed", err)
}

func NewAlreadyRecording() *VoiceError {
	return newError(ErrAlreadyRecording, http.StatusConflict, "a capture session is already active", nil)
}

func NewNotRecording() *VoiceError {
	return newError(ErrNotRecording, http.StatusConflict, "no capture session is active", nil)
}

// NewTranscriptionFailed wraps a speech-to-text transport or service error.
func NewTranscriptionFailed(err error) *VoiceError {
	return newError(ErrTranscriptionFailed, http.StatusBadGateway, "transcription failed", err)
}

// NewFormattingFailed wraps a chat-completion failure. Callers degrade to the raw text.
func NewFormattingFailed(err error) *VoiceError {
	return newError(ErrFormattingFailed, http.StatusBadGateway, "formatting failed", err)
}

func NewInjectionFailed(err error) *VoiceError {
	return newError(ErrInjectionFailed, http.StatusInternalServerError, "text injection failed", err)
}

// NewStorage wraps a database failure for the named operation.
func NewStorage(op string, err error) *VoiceError {
	e := newError(ErrStorage, http.StatusInternalServerError, op+" failed", err)
	e.Details = map[string]any{"op": op}
	return e
}

// NewNotFound creates a 404 error for a missing transcription.
func NewNotFound(id int64) *VoiceError {
	return &VoiceError{
		Code:    ErrNotFound,
		Status:  http.StatusNotFound,
		Message: fmt.Sprintf("transcription not found: %d", id),
		Details: map[string]any{"id": id},
	}
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *VoiceError {
	return newError(ErrInvalidRequest, http.StatusBadRequest, msg, nil)
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *VoiceError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return newError(ErrInternal, http.StatusInternalServerError, msg, nil)
}

// Is checks if err or any error it wraps is a VoiceError with the given code.
func Is(err error, code ErrorCode) bool {
	var vErr *VoiceError
	if stderrors.As(err, &vErr) {
		return vErr.Code == code
	}
	return false
}

// Status returns the HTTP status for err, 500 for unstructured errors.
func Status(err error) int {
	var vErr *VoiceError
	if stderrors.As(err, &vErr) && vErr.Status != 0 {
		return vErr.Status
	}
	return http.StatusInternalServerError
}

// As extracts a VoiceError from err, wrapping unstructured errors as INTERNAL.
func As(err error) *VoiceError {
	var vErr *VoiceError
	if stderrors.As(err, &vErr) {
		return vErr
	}
	return NewInternal(err)
}
