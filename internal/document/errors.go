package document

import (
	"context"
	"errors"
	"fmt"

	"github.com/Paintersrp/folio/internal/access"
	"github.com/Paintersrp/folio/internal/platform"
)

var (
	ErrInvalidPath      = errors.New("invalid document path")
	ErrDocumentNotFound = errors.New("document not found")
	ErrEmptyDocument    = errors.New("document has no pages")
	ErrInvalidZoom      = errors.New("zoom must be greater than zero")
	ErrInvalidMode      = errors.New("unknown display mode")
	ErrPageOutOfRange   = errors.New("page index out of range")
	ErrNotLoaded        = errors.New("document is not loaded")
)

// DecodeError wraps a failure reported by the decoder.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// UserMessage maps a load failure to text suitable for display.
func UserMessage(err error) string {
	var decodeErr *DecodeError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDocumentNotFound):
		return "The document could not be found. It may have been moved or deleted."
	case errors.Is(err, ErrInvalidPath):
		return "The document path is not valid."
	case errors.Is(err, access.ErrAccessDenied):
		return "Folio is not allowed to read this document. Grant access to its folder and try again."
	case errors.Is(err, ErrEmptyDocument):
		return "The document has no pages."
	case errors.Is(err, platform.ErrUnsupported):
		return "This document format is not supported."
	case errors.As(err, &decodeErr):
		return "The document could not be opened. It may be damaged."
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Loading was cancelled."
	default:
		return "The document could not be loaded: " + err.Error()
	}
}
