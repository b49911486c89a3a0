package browser

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// ChromedpLauncher launches Chrome through chromedp's exec allocator.
type ChromedpLauncher struct {
	opts Options
}

// NewChromedpLauncher creates a ChromedpLauncher.
func NewChromedpLauncher(opts Options) *ChromedpLauncher {
	return &ChromedpLauncher{opts: opts}
}

// Available implements Launcher.
func (l *ChromedpLauncher) Available() error {
	_, err := LookPath(l.opts.Bin)
	return err
}

// Launch implements Launcher. The browser process lives until Close; ctx only
// bounds the startup.
func (l *ChromedpLauncher) Launch(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bin, err := LookPath(l.opts.Bin)
	if err != nil {
		return nil, err
	}

	profileDir, err := os.MkdirTemp("", "md2png-chrome-*")
	if err != nil {
		return nil, fmt.Errorf("%w: creating profile dir: %v", ErrLaunch, err)
	}

	allocatorOptions := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(bin),
		chromedp.UserDataDir(profileDir),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	if l.opts.NoSandbox {
		allocatorOptions = append(allocatorOptions, chromedp.NoSandbox)
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocatorOptions...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	s := &chromedpSession{
		browserCtx: browserCtx,
		cancel: func() {
			cancelBrowser()
			cancelAlloc()
		},
		profileDir: profileDir,
	}

	// The first Run starts the browser process.
	if err := runWithContext(ctx, browserCtx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("%w: %v", ErrLaunch, err)
	}
	return s, nil
}

type chromedpSession struct {
	browserCtx context.Context
	cancel     func()
	profileDir string
	once       sync.Once
}

func (s *chromedpSession) NewPage(ctx context.Context, vp Viewport) (Page, error) {
	tabCtx, _ := chromedp.NewContext(s.browserCtx)

	scale := vp.DeviceScaleFactor
	if scale <= 0 {
		scale = 1
	}

	err := runWithContext(ctx, tabCtx,
		chromedp.EmulateViewport(int64(vp.Width), int64(vp.Height), chromedp.EmulateScale(scale)),
		emulation.SetDefaultBackgroundColorOverride().WithColor(&cdp.RGBA{R: 0, G: 0, B: 0, A: 0}),
		chromedp.Navigate("about:blank"),
	)
	if err != nil {
		return nil, err
	}
	return &chromedpPage{tabCtx: tabCtx}, nil
}

// Close cancels the browser context, which terminates the process, and
// removes the profile directory.
func (s *chromedpSession) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		err = os.RemoveAll(s.profileDir)
	})
	return err
}

type chromedpPage struct {
	tabCtx context.Context
}

func (p *chromedpPage) SetContent(ctx context.Context, html string) error {
	return runWithContext(ctx, p.tabCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			frame, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frame.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

func (p *chromedpPage) Evaluate(ctx context.Context, fn string) ([]byte, error) {
	var res []byte
	err := runWithContext(ctx, p.tabCtx,
		chromedp.Evaluate("("+fn+")()", &res, func(params *runtime.EvaluateParams) *runtime.EvaluateParams {
			return params.WithAwaitPromise(true)
		}),
	)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (p *chromedpPage) QuerySelector(ctx context.Context, sel string) (Element, error) {
	var nodes []*cdp.Node
	if err := runWithContext(ctx, p.tabCtx, chromedp.Nodes(sel, &nodes, chromedp.ByQuery, chromedp.AtLeast(0))); err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, nil
	}
	return &chromedpElement{tabCtx: p.tabCtx, nodeID: nodes[0].NodeID}, nil
}

type chromedpElement struct {
	tabCtx context.Context
	nodeID cdp.NodeID
}

func (e *chromedpElement) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := runWithContext(ctx, e.tabCtx, chromedp.Screenshot([]cdp.NodeID{e.nodeID}, &buf, chromedp.ByNodeID)); err != nil {
		return nil, err
	}
	return buf, nil
}

// runWithContext runs actions on a chromedp context while honoring ctx.
// chromedp binds cancellation to its own context tree, so the caller's
// deadline is applied through goroutine + select.
func runWithContext(ctx, chromeCtx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(chromeCtx, actions...)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// Compile-time interface checks.
var (
	_ Launcher = (*ChromedpLauncher)(nil)
	_ Session  = (*chromedpSession)(nil)
	_ Page     = (*chromedpPage)(nil)
	_ Element  = (*chromedpElement)(nil)
)
