package md2png

import (
	"errors"
	"net/http"

	"github.com/alnah/go-md2png/internal/pipeline"
)

// Sentinel errors for render operations. All of them are reachable through
// errors.Is on the *RenderError returned by Render.
var (
	ErrEmptyMarkdown      = errors.New("markdown content is missing or invalid")
	ErrBrowserUnavailable = errors.New("headless browser is not available")
	ErrBrowserConnect     = errors.New("failed to start browser")
	ErrPageCreate         = errors.New("failed to create browser page")
	ErrPageLoad           = errors.New("failed to load page content")
	ErrImageWait          = errors.New("failed waiting for images")
	ErrTargetNotFound     = errors.New("screenshot target element not found")
	ErrScreenshot         = errors.New("screenshot capture failed")
	ErrInvalidAssetPath   = errors.New("invalid asset path")

	ErrHTMLConversion        = pipeline.ErrHTMLConversion
	ErrUnknownHighlightStyle = pipeline.ErrUnknownHighlightStyle
	ErrDocumentSynthesis     = pipeline.ErrDocumentSynthesis
	ErrTemplateIntegrity     = pipeline.ErrTemplateIntegrity
)

// ErrorKind classifies a render failure.
type ErrorKind string

// Error kinds.
const (
	// KindMissingInput: the request carried no Markdown.
	KindMissingInput ErrorKind = "MissingInput"
	// KindEnvironmentUnavailable: no headless browser can be started.
	KindEnvironmentUnavailable ErrorKind = "EnvironmentUnavailable"
	// KindTemplateIntegrity: the document lacks exactly one screenshot target.
	KindTemplateIntegrity ErrorKind = "TemplateIntegrityError"
	// KindRenderFailure: any other failure while converting or rendering.
	KindRenderFailure ErrorKind = "RenderFailure"
)

// RenderError is the error returned by Render.
type RenderError struct {
	Kind ErrorKind
	Err  error
}

func (e *RenderError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return e.Err.Error()
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// StatusCode maps the error kind to an HTTP status: 400 for missing input,
// 500 for everything else.
func (e *RenderError) StatusCode() int {
	if e.Kind == KindMissingInput {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// KindOf returns the kind of a *RenderError in err's chain, or
// KindRenderFailure for any other non-nil error.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var re *RenderError
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindRenderFailure
}

// StatusCode returns the HTTP status for err (see RenderError.StatusCode).
func StatusCode(err error) int {
	var re *RenderError
	if errors.As(err, &re) {
		return re.StatusCode()
	}
	return http.StatusInternalServerError
}

func newRenderError(kind ErrorKind, err error) *RenderError {
	return &RenderError{Kind: kind, Err: err}
}
