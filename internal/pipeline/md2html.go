package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	// ErrHTMLConversion indicates HTML conversion failed.
	ErrHTMLConversion = errors.New("HTML conversion failed")
	// ErrUnknownHighlightStyle indicates a style name chroma does not register.
	ErrUnknownHighlightStyle = errors.New("unknown highlight style")
)

// DefaultHighlightStyle is the chroma style used for fenced code blocks.
const DefaultHighlightStyle = "github"

// HTMLConverter abstracts Markdown to HTML conversion.
type HTMLConverter interface {
	ToHTML(ctx context.Context, content string) (string, error)
}

// GoldmarkOption configures a GoldmarkConverter.
type GoldmarkOption func(*goldmarkOptions)

type goldmarkOptions struct {
	rawHTML        bool
	highlightStyle string
}

// WithRawHTML controls whether raw HTML embedded in Markdown passes through
// to the output (default). When disabled, goldmark replaces it with an HTML
// comment.
func WithRawHTML(enabled bool) GoldmarkOption {
	return func(o *goldmarkOptions) {
		o.rawHTML = enabled
	}
}

// WithHighlightStyle sets the chroma style name for code blocks.
// An empty name disables syntax highlighting.
func WithHighlightStyle(name string) GoldmarkOption {
	return func(o *goldmarkOptions) {
		o.highlightStyle = name
	}
}

// ValidateHighlightStyle checks name against chroma's style registry.
// Empty is valid and means no highlighting. chroma itself silently falls
// back to its default style for unknown names.
func ValidateHighlightStyle(name string) error {
	if name == "" {
		return nil
	}
	if _, ok := styles.Registry[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownHighlightStyle, name)
	}
	return nil
}

// GoldmarkConverter converts Markdown to an HTML fragment using goldmark (pure Go).
type GoldmarkConverter struct {
	md goldmark.Markdown
}

// NewGoldmarkConverter creates a GoldmarkConverter with GFM extensions and syntax highlighting.
func NewGoldmarkConverter(opts ...GoldmarkOption) *GoldmarkConverter {
	o := goldmarkOptions{rawHTML: true, highlightStyle: DefaultHighlightStyle}
	for _, opt := range opts {
		opt(&o)
	}

	extensions := []goldmark.Extender{
		extension.GFM,      // Tables, strikethrough, autolinks, task lists
		extension.Footnote, // [^1] footnotes
	}
	if o.highlightStyle != "" {
		extensions = append(extensions, highlighting.NewHighlighting(
			highlighting.WithStyle(o.highlightStyle),
			highlighting.WithFormatOptions(
				// Inline styles keep the card document self-contained.
				chromahtml.WithClasses(false),
			),
		))
	}

	rendererOpts := []renderer.Option{
		html.WithXHTML(), // Self-closing tags
	}
	if o.rawHTML {
		rendererOpts = append(rendererOpts, html.WithUnsafe())
	}

	md := goldmark.New(
		goldmark.WithExtensions(extensions...),
		goldmark.WithRendererOptions(rendererOpts...),
	)
	return &GoldmarkConverter{md: md}
}

// ToHTML converts Markdown content to an HTML fragment.
// Markdown is a permissive grammar: any input renders on a best-effort basis,
// so errors only come from cancellation or the underlying writer.
// Supports context cancellation via goroutine + select pattern since
// Goldmark doesn't natively support context.
func (c *GoldmarkConverter) ToHTML(ctx context.Context, content string) (string, error) {
	// Fast path: check context before starting
	if err := ctx.Err(); err != nil {
		return "", err
	}

	type result struct {
		html string
		err  error
	}

	done := make(chan result, 1)

	go func() {
		var buf bytes.Buffer
		if err := c.md.Convert([]byte(content), &buf); err != nil {
			done <- result{err: fmt.Errorf("%w: %v", ErrHTMLConversion, err)}
			return
		}
		done <- result{html: buf.String()}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		return r.html, r.err
	}
}

// Compile-time interface check.
var _ HTMLConverter = (*GoldmarkConverter)(nil)
