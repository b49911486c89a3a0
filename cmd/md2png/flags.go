package main

import (
	"fmt"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/alnah/go-md2png/internal/config"
)

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// styleFlags holds card appearance and render timing flags.
type styleFlags struct {
	width          int
	cardBg         string
	outerBg        string
	timeout        time.Duration
	imageTimeout   time.Duration
	scale          float64
	rawHTML        bool
	highlightStyle string
}

// browserFlags holds browser selection flags.
type browserFlags struct {
	backend   string
	bin       string
	noSandbox bool
	assetPath string
}

// renderFlags holds all flags for the render command.
type renderFlags struct {
	common   commonFlags
	output   string
	workers  int
	html     bool // HTML alongside the PNG
	htmlOnly bool // HTML only, no browser
	style    styleFlags
	browser  browserFlags
	set      map[string]bool
}

// serveFlags holds all flags for the serve command.
type serveFlags struct {
	common    commonFlags
	addr      string
	workers   int
	monitor   bool
	logLevel  string
	logFormat string
	style     styleFlags
	browser   browserFlags
	set       map[string]bool
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show detailed timing and browser events")
}

// addStyleFlags adds card appearance flags to a FlagSet.
func addStyleFlags(fs *flag.FlagSet, f *styleFlags) {
	fs.IntVarP(&f.width, "width", "W", 0, "card width in pixels (0 = 680)")
	fs.StringVar(&f.cardBg, "card-bg", "", "card background color")
	fs.StringVar(&f.outerBg, "outer-bg", "", "frame background: hex color or CSS background")
	fs.DurationVarP(&f.timeout, "timeout", "t", 0, "whole render timeout (e.g. 30s, 2m; 0 = none)")
	fs.DurationVar(&f.imageTimeout, "image-timeout", 0, "per-image load timeout (0 = wait indefinitely)")
	fs.Float64Var(&f.scale, "scale", 0, "device scale factor (1-4, 2 = retina)")
	fs.BoolVar(&f.rawHTML, "raw-html", true, "pass raw HTML in markdown through (--raw-html=false omits it)")
	fs.StringVar(&f.highlightStyle, "highlight-style", "", "chroma style for code blocks")
}

// addBrowserFlags adds browser selection flags to a FlagSet.
func addBrowserFlags(fs *flag.FlagSet, f *browserFlags) {
	fs.StringVar(&f.backend, "backend", "", "browser backend: rod, chromedp")
	fs.StringVar(&f.bin, "browser-bin", "", "Chrome/Chromium executable")
	fs.BoolVar(&f.noSandbox, "no-sandbox", false, "disable the Chrome sandbox (containers, CI)")
	fs.StringVar(&f.assetPath, "asset-path", "", "directory overriding the card template and style")
}

// parseRenderFlags parses render command flags and returns positional args.
func parseRenderFlags(args []string, env *Environment) (*renderFlags, []string, error) {
	fs := flag.NewFlagSet(cmdRender, flag.ContinueOnError)
	fs.SetOutput(env.Stderr)
	f := &renderFlags{}

	fs.StringVarP(&f.output, "output", "o", "", "output file or directory (- = stdout)")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel renders for several inputs (0 = auto)")
	fs.BoolVar(&f.html, "html", false, "also write the HTML document")
	fs.BoolVar(&f.htmlOnly, "html-only", false, "write the HTML document only, skip the browser")

	addCommonFlags(fs, &f.common)
	addStyleFlags(fs, &f.style)
	addBrowserFlags(fs, &f.browser)

	fs.Usage = func() { printRenderUsage(env.Stderr) }

	if err := parse(fs, args); err != nil {
		return nil, nil, err
	}
	f.set = changedFlags(fs)
	return f, fs.Args(), nil
}

// parseServeFlags parses serve command flags and returns positional args.
func parseServeFlags(args []string, env *Environment) (*serveFlags, []string, error) {
	fs := flag.NewFlagSet(cmdServe, flag.ContinueOnError)
	fs.SetOutput(env.Stderr)
	f := &serveFlags{}

	fs.StringVarP(&f.addr, "addr", "a", "", "listen address (default :3000)")
	fs.IntVarP(&f.workers, "workers", "w", 0, "concurrent renders (0 = auto)")
	fs.BoolVar(&f.monitor, "monitor", false, "serve the metrics dashboard at /monitor")
	fs.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
	fs.StringVar(&f.logFormat, "log-format", "", "log format: json, console")

	addCommonFlags(fs, &f.common)
	addStyleFlags(fs, &f.style)
	addBrowserFlags(fs, &f.browser)

	fs.Usage = func() { printServeUsage(env.Stderr) }

	if err := parse(fs, args); err != nil {
		return nil, nil, err
	}
	f.set = changedFlags(fs)
	return f, fs.Args(), nil
}

// parse wraps flag errors with ErrUsage; --help passes through unchanged.
func parse(fs *flag.FlagSet, args []string) error {
	err := fs.Parse(args)
	if err == nil || err == flag.ErrHelp {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUsage, err)
}

// changedFlags returns the names of flags set on the command line.
func changedFlags(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

// applyStyleFlags overrides cfg with explicitly set flags (CLI wins).
func applyStyleFlags(set map[string]bool, f styleFlags, cfg *config.Config) {
	if set["width"] {
		cfg.Render.Width = f.width
	}
	if set["card-bg"] {
		cfg.Render.CardBackground = f.cardBg
	}
	if set["outer-bg"] {
		cfg.Render.OuterBackground = f.outerBg
	}
	if set["timeout"] {
		cfg.Render.Timeout = config.Duration(f.timeout)
	}
	if set["image-timeout"] {
		cfg.Render.ImageTimeout = config.Duration(f.imageTimeout)
	}
	if set["scale"] {
		cfg.Render.ScaleFactor = f.scale
	}
	if set["raw-html"] {
		cfg.Render.RawHTML = f.rawHTML
	}
	if set["highlight-style"] {
		cfg.Render.HighlightStyle = f.highlightStyle
	}
}

// applyBrowserFlags overrides cfg with explicitly set flags (CLI wins).
func applyBrowserFlags(set map[string]bool, f browserFlags, cfg *config.Config) {
	if set["backend"] {
		cfg.Browser.Backend = f.backend
	}
	if set["browser-bin"] {
		cfg.Browser.Bin = f.bin
	}
	if set["no-sandbox"] {
		cfg.Browser.NoSandbox = f.noSandbox
	}
	if set["asset-path"] {
		cfg.Assets.BasePath = f.assetPath
	}
}

// applyServeFlags overrides cfg with every explicitly set serve flag.
func applyServeFlags(f *serveFlags, cfg *config.Config) {
	if f.set["addr"] {
		cfg.Server.Addr = f.addr
	}
	if f.set["workers"] {
		cfg.Server.Workers = f.workers
	}
	if f.set["monitor"] {
		cfg.Server.Monitor = f.monitor
	}
	if f.set["log-level"] {
		cfg.Log.Level = f.logLevel
	}
	if f.set["log-format"] {
		cfg.Log.Format = f.logFormat
	}
	applyStyleFlags(f.set, f.style, cfg)
	applyBrowserFlags(f.set, f.browser, cfg)
}
