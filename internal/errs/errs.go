// Package errs defines common error variables used across the application.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Phase error kinds. Every failure leaving the metadata or download phase matches exactly one.
var (
	// ErrExtraction indicates that the extraction service failed to return metadata.
	ErrExtraction = errors.New("extraction failed")
	// ErrDownload indicates that the download or transcode service reported a failure.
	ErrDownload = errors.New("download failed")
	// ErrFileNotProduced indicates that the service succeeded but left no file, or an empty one.
	ErrFileNotProduced = errors.New("file not produced")
	// ErrUnknown indicates any other failure.
	ErrUnknown = errors.New("unknown error")
)

// Valid request errors.
var (
	// ErrInvalidRequestBody indicates that the request body is invalid or cannot be parsed.
	ErrInvalidRequestBody = errors.New("invalid request body")
	// ErrInvalidURL indicates that the URL field in the request is invalid.
	ErrInvalidURL = errors.New("invalid url field")
	// ErrInvalidResolution indicates that the resolution is not one of the supported values.
	ErrInvalidResolution = errors.New("invalid resolution field")
)

// Service errors.
var (
	// ErrDownloadInProgress indicates that another download currently owns the output path.
	ErrDownloadInProgress = errors.New("download to the same file already in progress")
	// ErrFileNotFound indicates that a stored file is unknown or expired.
	ErrFileNotFound = errors.New("file not found")
	// ErrMetadataNil indicates that the extraction service returned no metadata.
	ErrMetadataNil = errors.New("metadata is nil")
)

// Dependency errors.
var (
	// ErrBinaryNotFound indicates that the required binary was not found.
	ErrBinaryNotFound = errors.New("binary not found")
	// ErrUnsupportedPlatform indicates that the current platform is not supported.
	ErrUnsupportedPlatform = errors.New("unsupported platform")
)

// TranscoderHint is attached to download errors that look like a missing ffmpeg.
const TranscoderHint = "ffmpeg may be missing or not on PATH; it is required for mp4 conversion and most high resolution downloads"

// PhaseError is the failure half of a fetch or download result.
// Kind is one of ErrExtraction, ErrDownload, ErrFileNotProduced or ErrUnknown.
type PhaseError struct {
	Kind    error
	Message string // short, user facing
	Hint    string // optional remediation
	Err     error  // underlying cause, may be nil
}

func (e *PhaseError) Error() string {
	var b strings.Builder

	b.WriteString(e.Kind.Error())

	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}

	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *PhaseError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}

	return []error{e.Kind, e.Err}
}

// NewPhaseError builds a PhaseError. The message defaults to the cause's text.
func NewPhaseError(kind error, message string, err error) *PhaseError {
	if message == "" && err != nil {
		message = err.Error()
	}

	return &PhaseError{Kind: kind, Message: message, Err: err}
}

// KindOf returns the phase kind of err, ErrUnknown for anything unclassified, nil for nil.
func KindOf(err error) error {
	if err == nil {
		return nil
	}

	for _, kind := range []error{ErrExtraction, ErrDownload, ErrFileNotProduced} {
		if errors.Is(err, kind) {
			return kind
		}
	}

	return ErrUnknown
}

// HintOf returns the remediation hint carried by err, if any.
func HintOf(err error) string {
	var pe *PhaseError
	if errors.As(err, &pe) {
		return pe.Hint
	}

	return ""
}

// Recovered converts a recovered panic value into an ErrUnknown phase error.
func Recovered(v any) *PhaseError {
	return NewPhaseError(ErrUnknown, fmt.Sprintf("panic: %v", v), nil)
}
