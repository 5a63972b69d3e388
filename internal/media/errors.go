package media

import (
	"errors"
	"fmt"

	"github.com/mnbots/mnbot/internal/ffmpeg"
	"github.com/mnbots/mnbot/internal/messages"
)

type DownloadError struct {
	Err error
}

func (e *DownloadError) Error() string { return fmt.Sprintf("download: %v", e.Err) }
func (e *DownloadError) Unwrap() error { return e.Err }

type AuxiliaryFetchError struct {
	Asset string
	Err   error
}

func (e *AuxiliaryFetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Asset, e.Err)
}
func (e *AuxiliaryFetchError) Unwrap() error { return e.Err }

type MissingStreamError struct {
	Stream string
}

func (e *MissingStreamError) Error() string { return fmt.Sprintf("no %s stream found", e.Stream) }

// TransformError wraps an encoder failure with the tool's diagnostic output.
type TransformError struct {
	Diagnostic string
	Err        error
}

func (e *TransformError) Error() string {
	if e.Diagnostic != "" {
		return fmt.Sprintf("transform: %v: %s", e.Err, e.Diagnostic)
	}
	return fmt.Sprintf("transform: %v", e.Err)
}
func (e *TransformError) Unwrap() error { return e.Err }

type DeliveryError struct {
	Err error
}

func (e *DeliveryError) Error() string { return fmt.Sprintf("upload: %v", e.Err) }
func (e *DeliveryError) Unwrap() error { return e.Err }

// UnclassifiedFailure is the catch-all, including recovered panics.
type UnclassifiedFailure struct {
	Err   error
	Panic any
}

func (e *UnclassifiedFailure) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("panic: %v", e.Panic)
	}
	return fmt.Sprintf("unclassified: %v", e.Err)
}
func (e *UnclassifiedFailure) Unwrap() error { return e.Err }

// asTransform converts encoder errors into TransformError and passes
// already classified errors through.
func asTransform(err error) error {
	if err == nil || isClassified(err) {
		return err
	}
	var toolErr *ffmpeg.ToolError
	if errors.As(err, &toolErr) {
		return &TransformError{Diagnostic: toolErr.Diagnostic, Err: err}
	}
	return &UnclassifiedFailure{Err: err}
}

func isClassified(err error) bool {
	var (
		d *DownloadError
		a *AuxiliaryFetchError
		m *MissingStreamError
		t *TransformError
		u *DeliveryError
		x *UnclassifiedFailure
	)
	return errors.As(err, &d) || errors.As(err, &a) || errors.As(err, &m) ||
		errors.As(err, &t) || errors.As(err, &u) || errors.As(err, &x)
}

// UserMessage renders the single text a user sees for a failed job.
func UserMessage(err error) string {
	var (
		d *DownloadError
		a *AuxiliaryFetchError
		m *MissingStreamError
		t *TransformError
		u *DeliveryError
	)
	switch {
	case err == nil:
		return messages.StageDone()
	case errors.As(err, &d):
		return messages.ErrorDownload()
	case errors.As(err, &a):
		return messages.ErrorAuxiliaryFetch(a.Asset)
	case errors.As(err, &m):
		return messages.ErrorMissingStream(m.Stream)
	case errors.As(err, &t):
		return messages.ErrorTransform(t.Diagnostic)
	case errors.As(err, &u):
		return messages.ErrorUpload()
	default:
		return messages.ErrorDefault()
	}
}
