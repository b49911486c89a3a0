package main

import (
	"context"
	"errors"
	"fmt"

	md2png "github.com/alnah/go-md2png"
	"github.com/alnah/go-md2png/internal/logging"
)

// ErrUsage marks invalid flags or arguments.
var ErrUsage = errors.New("invalid usage")

// runRender renders Markdown files, directories, or stdin to PNG cards.
func runRender(ctx context.Context, args []string, env *Environment) error {
	f, inputs, err := parseRenderFlags(args, env)
	if err != nil {
		return err
	}
	if f.html && f.htmlOnly {
		return fmt.Errorf("%w: --html and --html-only are mutually exclusive", ErrUsage)
	}
	if f.html && f.output == stdio {
		return fmt.Errorf("%w: --html cannot write to stdout", ErrUsage)
	}
	if err := validateWorkers(f.workers); err != nil {
		return err
	}
	if len(inputs) == 0 {
		inputs = []string{stdio}
	}

	cfg, err := loadConfig(f.common.config, env)
	if err != nil {
		return err
	}
	applyStyleFlags(f.set, f.style, cfg)
	applyBrowserFlags(f.set, f.browser, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	level := "warn"
	if f.common.verbose {
		level = "debug"
	}
	logging.InitConsole(env.Stderr, level)

	ext := ".png"
	if f.htmlOnly {
		ext = ".html"
	}
	jobs, err := discoverJobs(inputs, f.output, ext)
	if err != nil {
		return err
	}

	renderer, err := env.NewRenderer(cfg)
	if err != nil {
		return err
	}
	pool := md2png.NewRenderPool(renderer, md2png.ResolvePoolSize(f.workers))
	if f.common.verbose && len(jobs) > 1 {
		fmt.Fprintf(env.Stderr, "Rendering %d files with %d workers\n", len(jobs), min(pool.Size(), len(jobs)))
	}

	results := renderBatch(ctx, pool, jobs, renderParams{
		cardBackground:  cfg.Render.CardBackground,
		outerBackground: cfg.Render.OuterBackground,
		width:           cfg.Render.Width,
		htmlOnly:        f.htmlOnly,
		htmlAlongside:   f.html,
	}, env)

	failed := printResults(results, f.common.quiet, f.common.verbose, env)
	if failed == 0 {
		return nil
	}
	first := firstError(results)
	if len(results) == 1 {
		return fmt.Errorf("rendering %s: %w", displayName(results[0].InputPath), first)
	}
	return fmt.Errorf("%d of %d render(s) failed: %w", failed, len(results), first)
}

func firstError(results []renderResult) error {
	for _, r := range results {
		if r.Err != nil {
			return r.Err
		}
	}
	return nil
}
