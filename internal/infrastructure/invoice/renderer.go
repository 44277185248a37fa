package invoice

import (
	"context"
	"time"
)

// RenderRequest carries one HTML document to be printed as a PDF.
type RenderRequest struct {
	HTML  string
	Title string
	// Timeout overrides the renderer's default when positive.
	Timeout time.Duration
}

// RenderResult is the printed document plus render diagnostics.
type RenderResult struct {
	PDFData        []byte
	PageCount      int
	RenderDuration time.Duration
}

// PDFRenderer prints HTML to PDF. Implementations hold a browser or
// similar resource, so Close must be called on shutdown.
type PDFRenderer interface {
	Render(ctx context.Context, req *RenderRequest) (*RenderResult, error)
	Close() error
}

// Error codes carried by RenderError.
const (
	ErrCodeRenderTimeout = "RENDER_TIMEOUT"
	ErrCodeRenderFailed  = "RENDER_FAILED"
	ErrCodeInvalidHTML   = "INVALID_HTML"
	ErrCodeTemplateError = "TEMPLATE_ERROR"
)

// RenderError classifies a rendering failure so the HTTP layer can
// distinguish timeouts from bad input.
type RenderError struct {
	Code    string
	Message string
	Cause   error
}

func NewRenderError(code, message string, cause error) *RenderError {
	return &RenderError{Code: code, Message: message, Cause: cause}
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}
