package md2png

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/alnah/go-md2png/internal/assets"
	"github.com/alnah/go-md2png/internal/browser"
	"github.com/alnah/go-md2png/internal/pipeline"
)

// Page geometry.
const (
	// viewportPadding leaves room around the card for the frame padding.
	viewportPadding = 100
	// viewportHeight is only the initial height; element screenshots extend
	// beyond it.
	viewportHeight = 1024
	// maxViewportWidth is Chrome's practical texture limit.
	maxViewportWidth = 16384
)

// imageWaitScript resolves once every card image has loaded, failed, or hit
// the per-image timeout (0 disables it). It returns the number of images.
const imageWaitScript = `() => {
	const timeoutMs = %d;
	const images = Array.from(document.querySelectorAll(%q));
	return Promise.all(images.map((img) => new Promise((resolve) => {
		if (img.complete) {
			resolve();
			return;
		}
		img.addEventListener("load", resolve, { once: true });
		img.addEventListener("error", resolve, { once: true });
		if (timeoutMs > 0) {
			setTimeout(resolve, timeoutMs);
		}
	}))).then((settled) => settled.length);
}`

// Converter renders Markdown cards to PNG through a headless browser.
// It holds only immutable configuration: each Render launches and tears down
// its own browser session, so a Converter is safe for concurrent use.
type Converter struct {
	cfg           converterConfig
	logger        zerolog.Logger
	launcher      Launcher
	htmlConverter pipeline.HTMLConverter
	synthesizer   *pipeline.Synthesizer
}

// NewConverter creates a Converter. Returns an error if the card template is
// invalid, the asset path is unusable, the highlight style is unknown, or the
// browser backend is unknown.
// No browser is started here.
func NewConverter(opts ...Option) (*Converter, error) {
	c := &Converter{
		cfg:    defaultConfig(),
		logger: zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	var loader assets.AssetLoader = assets.NewEmbeddedLoader()
	if c.cfg.assetPath != "" {
		resolver, err := assets.NewAssetResolver(c.cfg.assetPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidAssetPath, err)
		}
		loader = resolver
	}

	synth, err := pipeline.NewSynthesizer(loader, assets.DefaultTemplateName, assets.DefaultStyleName)
	if err != nil {
		return nil, fmt.Errorf("loading card template: %w", err)
	}
	c.synthesizer = synth

	if err := pipeline.ValidateHighlightStyle(c.cfg.highlightStyle); err != nil {
		return nil, err
	}
	c.htmlConverter = pipeline.NewGoldmarkConverter(
		pipeline.WithRawHTML(c.cfg.rawHTML),
		pipeline.WithHighlightStyle(c.cfg.highlightStyle),
	)

	if c.launcher == nil {
		l, err := browser.New(c.cfg.backend, browser.Options{
			Bin:       c.cfg.browserBin,
			NoSandbox: c.cfg.noSandbox,
		})
		if err != nil {
			return nil, err
		}
		c.launcher = l
	}

	return c, nil
}

// Available reports whether the configured browser can be launched.
func (c *Converter) Available() error {
	return c.launcher.Available()
}

// Render converts the Markdown in input to a PNG card.
// Every failure is a *RenderError; its Kind tells callers whether the input,
// the environment, the template, or the render itself is at fault.
// Recovers from internal panics to prevent crashes from propagating to callers.
func (c *Converter) Render(ctx context.Context, input Input) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = newRenderError(KindRenderFailure, fmt.Errorf("internal error: %v", r))
		}
	}()

	if input.Markdown == "" {
		return nil, newRenderError(KindMissingInput, ErrEmptyMarkdown)
	}

	if c.cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.timeout)
		defer cancel()
	}

	start := time.Now()
	style := pipeline.ResolveStyle(pipeline.StyleInput{
		CardBackground:  input.CardBackground,
		OuterBackground: input.OuterBackground,
		Width:           input.Width,
	})

	doc, err := c.document(ctx, input, style)
	if err != nil {
		return nil, err
	}

	res := &Result{HTML: []byte(doc), Style: style}
	if input.HTMLOnly {
		return res, nil
	}

	png, err := c.capture(ctx, doc, style.Width)
	if err != nil {
		return nil, err
	}
	res.PNG = png

	c.logger.Debug().
		Int("width", style.Width).
		Int("bytes", len(png)).
		Dur("elapsed", time.Since(start)).
		Msg("card rendered")
	return res, nil
}

// document builds the complete HTML document for input.
func (c *Converter) document(ctx context.Context, input Input, style Style) (string, error) {
	fragment, err := c.htmlConverter.ToHTML(ctx, input.Markdown)
	if err != nil {
		return "", newRenderError(KindRenderFailure, fmt.Errorf("converting to HTML: %w", err))
	}

	if input.SourceDir != "" {
		fragment, err = pipeline.InlineLocalImages(fragment, input.SourceDir)
		if err != nil {
			return "", newRenderError(KindRenderFailure, fmt.Errorf("%w: inlining images: %v", ErrDocumentSynthesis, err))
		}
	}

	doc, err := c.synthesizer.Synthesize(fragment, style)
	if err != nil {
		if errors.Is(err, ErrTemplateIntegrity) {
			return "", newRenderError(KindTemplateIntegrity, err)
		}
		return "", newRenderError(KindRenderFailure, err)
	}
	return doc, nil
}

// capture drives one browser session from launch to screenshot. The session
// is closed on every path; a close failure is logged and never replaces the
// render outcome.
func (c *Converter) capture(ctx context.Context, doc string, width int) ([]byte, error) {
	if err := c.launcher.Available(); err != nil {
		return nil, newRenderError(KindEnvironmentUnavailable, fmt.Errorf("%w: %v", ErrBrowserUnavailable, err))
	}

	session, err := c.launcher.Launch(ctx)
	if err != nil {
		if errors.Is(err, browser.ErrUnavailable) {
			return nil, newRenderError(KindEnvironmentUnavailable, fmt.Errorf("%w: %v", ErrBrowserUnavailable, err))
		}
		return nil, newRenderError(KindRenderFailure, stageError(ctx, ErrBrowserConnect, err))
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			c.logger.Warn().Err(cerr).Msg("browser session close failed")
		}
	}()
	c.logger.Debug().Msg("browser session started")

	page, err := session.NewPage(ctx, Viewport{
		Width:             min(width, maxViewportWidth-viewportPadding) + viewportPadding,
		Height:            viewportHeight,
		DeviceScaleFactor: c.cfg.scaleFactor,
	})
	if err != nil {
		return nil, newRenderError(KindRenderFailure, stageError(ctx, ErrPageCreate, err))
	}

	if err := page.SetContent(ctx, doc); err != nil {
		return nil, newRenderError(KindRenderFailure, stageError(ctx, ErrPageLoad, err))
	}

	script := fmt.Sprintf(imageWaitScript, c.cfg.imageTimeout.Milliseconds(), pipeline.ImageSelector)
	raw, err := page.Evaluate(ctx, script)
	if err != nil {
		return nil, newRenderError(KindRenderFailure, stageError(ctx, ErrImageWait, err))
	}
	var images int
	if err := json.Unmarshal(raw, &images); err == nil {
		c.logger.Debug().Int("images", images).Msg("card images settled")
	}

	target, err := page.QuerySelector(ctx, pipeline.TargetSelector)
	if err != nil {
		return nil, newRenderError(KindRenderFailure, stageError(ctx, ErrTargetNotFound, err))
	}
	if target == nil {
		return nil, newRenderError(KindTemplateIntegrity,
			fmt.Errorf("%w: no element matches %q", ErrTargetNotFound, pipeline.TargetSelector))
	}

	png, err := target.Screenshot(ctx)
	if err != nil {
		return nil, newRenderError(KindRenderFailure, stageError(ctx, ErrScreenshot, err))
	}
	return png, nil
}

// stageError wraps err with the failing stage. If the context ended, the
// context error is kept matchable as well.
func stageError(ctx context.Context, stage, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		return fmt.Errorf("%w: %w: %v", stage, ctxErr, err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", stage, err)
	}
	return fmt.Errorf("%w: %v", stage, err)
}

// Compile-time interface check.
var _ Renderer = (*Converter)(nil)
