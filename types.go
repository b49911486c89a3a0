package md2png

import (
	"context"

	"github.com/alnah/go-md2png/internal/browser"
	"github.com/alnah/go-md2png/internal/pipeline"
)

// Input is one render request.
type Input struct {
	Markdown        string // Markdown content (required)
	CardBackground  string // CSS background of the card (default #ffffff)
	OuterBackground string // CSS background or hex color of the frame (default gradient)
	Width           int    // card width in CSS pixels, <= 0 means 680

	// SourceDir resolves relative image paths; such images are inlined as
	// data URIs. Empty leaves image sources untouched.
	SourceDir string

	// HTMLOnly skips the browser: Result.PNG is nil.
	HTMLOnly bool
}

// Result holds the rendered image and the document it was captured from.
type Result struct {
	PNG   []byte
	HTML  []byte
	Style Style
}

// Style is the resolved card and frame styling.
type Style = pipeline.Style

// Renderer renders Markdown cards. Implemented by *Converter and *RenderPool.
type Renderer interface {
	Render(ctx context.Context, input Input) (*Result, error)
}

// Browser capability types, re-exported for custom launchers.
type (
	Launcher = browser.Launcher
	Session  = browser.Session
	Page     = browser.Page
	Element  = browser.Element
	Viewport = browser.Viewport
)

// Browser backend names.
const (
	BackendRod      = browser.BackendRod
	BackendChromedp = browser.BackendChromedp
)
