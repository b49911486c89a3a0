package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/alnah/go-md2png/internal/process"
)

// closeTimeout bounds Browser.close before the process group is killed.
const closeTimeout = 5 * time.Second

var errNoBox = errors.New("element has no layout box")

// RodLauncher launches Chrome through go-rod.
type RodLauncher struct {
	opts Options
}

// NewRodLauncher creates a RodLauncher.
func NewRodLauncher(opts Options) *RodLauncher {
	return &RodLauncher{opts: opts}
}

// Available implements Launcher.
func (l *RodLauncher) Available() error {
	_, err := LookPath(l.opts.Bin)
	return err
}

// Launch implements Launcher.
func (l *RodLauncher) Launch(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bin, err := LookPath(l.opts.Bin)
	if err != nil {
		return nil, err
	}

	ln := launcher.New().Bin(bin).NoSandbox(l.opts.NoSandbox)
	u, err := ln.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLaunch, err)
	}

	s := &rodSession{launcher: ln}
	// Connect on the session's own browser: Context returns a copy, and a
	// client set on a copy would leave s.browser unconnected.
	s.browser = rod.New().ControlURL(u)
	if err := s.browser.Connect(); err != nil {
		s.kill()
		return nil, fmt.Errorf("%w: %v", ErrLaunch, err)
	}
	return s, nil
}

type rodSession struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	once     sync.Once
	closeErr error
}

func (s *rodSession) NewPage(ctx context.Context, vp Viewport) (Page, error) {
	p, err := s.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, err
	}

	if err := p.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             vp.Width,
		Height:            vp.Height,
		DeviceScaleFactor: vp.DeviceScaleFactor,
	}); err != nil {
		return nil, err
	}

	transparent := 0.0
	if err := (proto.EmulationSetDefaultBackgroundColorOverride{
		Color: &proto.DOMRGBA{A: &transparent},
	}).Call(p); err != nil {
		return nil, err
	}

	return &rodPage{page: p}, nil
}

// Close closes the browser, then kills the process tree in case the browser
// ignored the request or left helper processes behind. The kill runs even
// when closing fails or panics.
func (s *rodSession) Close() error {
	s.once.Do(func() {
		defer s.kill()
		if s.browser != nil {
			s.closeErr = s.browser.Timeout(closeTimeout).Close()
		}
	})
	return s.closeErr
}

func (s *rodSession) kill() {
	if pid := s.launcher.PID(); pid > 0 {
		process.KillProcessGroup(pid)
	}
	s.launcher.Kill()
	s.launcher.Cleanup()
}

type rodPage struct {
	page *rod.Page
}

func (p *rodPage) SetContent(ctx context.Context, html string) error {
	return p.page.Context(ctx).SetDocumentContent(html)
}

func (p *rodPage) Evaluate(ctx context.Context, fn string) ([]byte, error) {
	res, err := p.page.Context(ctx).Evaluate(rod.Eval(fn).ByPromise())
	if err != nil {
		return nil, err
	}
	return []byte(res.Value.JSON("", "")), nil
}

func (p *rodPage) QuerySelector(ctx context.Context, sel string) (Element, error) {
	has, el, err := p.page.Context(ctx).Has(sel)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, nil
	}
	return &rodElement{page: p.page, el: el}, nil
}

type rodElement struct {
	page *rod.Page
	el   *rod.Element
}

// Screenshot clips a capture to the element's box. rod's Element.Screenshot
// crops a viewport-sized image instead, which cuts tall cards and misplaces
// the crop when the device scale factor is not 1.
func (e *rodElement) Screenshot(ctx context.Context) ([]byte, error) {
	shape, err := e.el.Context(ctx).Shape()
	if err != nil {
		return nil, err
	}
	box := shape.Box()
	if box == nil {
		return nil, errNoBox
	}
	return captureBox(e.page.Context(ctx), box)
}

// captureBox captures box, given in viewport CSS pixels, at device
// resolution. The clip is shifted by the scroll offset into document
// coordinates and may extend past the viewport.
func captureBox(page *rod.Page, box *proto.DOMRect) ([]byte, error) {
	metrics, err := proto.PageGetLayoutMetrics{}.Call(page)
	if err != nil {
		return nil, err
	}
	var scrollX, scrollY float64
	if vv := metrics.CSSVisualViewport; vv != nil {
		scrollX, scrollY = vv.PageX, vv.PageY
	}

	res, err := proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
		Clip: &proto.PageViewport{
			X:      box.X + scrollX,
			Y:      box.Y + scrollY,
			Width:  box.Width,
			Height: box.Height,
			Scale:  1,
		},
		CaptureBeyondViewport: true,
	}.Call(page)
	if err != nil {
		return nil, err
	}
	return res.Data, nil
}

// Compile-time interface checks.
var (
	_ Launcher = (*RodLauncher)(nil)
	_ Session  = (*rodSession)(nil)
	_ Page     = (*rodPage)(nil)
	_ Element  = (*rodElement)(nil)
)
