package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	md2png "github.com/alnah/go-md2png"
	"github.com/alnah/go-md2png/internal/fileutil"
)

// File permission constants.
const (
	dirPermissions  = 0o750 // rwxr-x---: owner full, group read+execute
	filePermissions = 0o644 // rw-r--r--: owner read+write, others read
)

// Sentinel errors for render I/O.
var (
	ErrReadMarkdown = errors.New("failed to read markdown")
	ErrWriteOutput  = errors.New("failed to write output")
)

// renderParams groups settings shared by every job of a batch.
type renderParams struct {
	cardBackground  string
	outerBackground string
	width           int
	htmlOnly        bool
	htmlAlongside   bool
}

// renderResult holds the outcome of a single render.
type renderResult struct {
	InputPath  string
	OutputPath string
	Err        error
	Duration   time.Duration
}

// renderBatch renders jobs concurrently; pool bounds how many browser
// sessions run at once. Results keep the order of jobs.
func renderBatch(ctx context.Context, pool *md2png.RenderPool, jobs []renderJob, params renderParams, env *Environment) []renderResult {
	if len(jobs) == 0 {
		return nil
	}

	concurrency := min(pool.Size(), len(jobs))
	results := make([]renderResult, len(jobs))
	queue := make(chan int, len(jobs))
	for i := range jobs {
		queue <- i
	}
	close(queue)

	var wg sync.WaitGroup
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range queue {
				if err := ctx.Err(); err != nil {
					results[idx] = renderResult{InputPath: jobs[idx].InputPath, Err: err}
					continue
				}
				results[idx] = renderOne(ctx, pool, jobs[idx], params, env)
			}
		}()
	}

	wg.Wait()
	return results
}

// renderOne reads, renders, and writes a single job.
func renderOne(ctx context.Context, r md2png.Renderer, job renderJob, params renderParams, env *Environment) renderResult {
	start := env.Now()
	result := renderResult{InputPath: job.InputPath, OutputPath: job.OutputPath}
	finish := func(err error) renderResult {
		result.Err = err
		result.Duration = env.Now().Sub(start)
		return result
	}

	markdown, sourceDir, err := readMarkdown(job.InputPath, env.Stdin)
	if err != nil {
		return finish(err)
	}

	res, err := r.Render(ctx, md2png.Input{
		Markdown:        markdown,
		CardBackground:  params.cardBackground,
		OuterBackground: params.outerBackground,
		Width:           params.width,
		SourceDir:       sourceDir,
		HTMLOnly:        params.htmlOnly,
	})
	if err != nil {
		return finish(err)
	}

	if job.OutputPath == stdio {
		data := res.PNG
		if params.htmlOnly {
			data = res.HTML
		}
		if _, err := env.Stdout.Write(data); err != nil {
			return finish(fmt.Errorf("%w: %v", ErrWriteOutput, err))
		}
		return finish(nil)
	}

	if params.htmlOnly {
		return finish(writeOutput(job.OutputPath, res.HTML))
	}
	if params.htmlAlongside {
		if err := writeOutput(htmlOutputPath(job.OutputPath), res.HTML); err != nil {
			return finish(err)
		}
	}
	return finish(writeOutput(job.OutputPath, res.PNG))
}

// readMarkdown reads path, or stdin for "-". sourceDir resolves relative
// image references and is empty for stdin.
func readMarkdown(path string, stdin io.Reader) (markdown, sourceDir string, err error) {
	var content []byte
	if path == stdio {
		content, err = io.ReadAll(stdin)
	} else {
		content, err = os.ReadFile(path) // #nosec G304 -- user-provided path
		sourceDir = filepath.Dir(path)
	}
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrReadMarkdown, err)
	}
	return string(content), sourceDir, nil
}

// writeOutput creates the parent directory and replaces path atomically.
func writeOutput(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
		return fmt.Errorf("%w: creating output directory: %w", ErrWriteOutput, err)
	}
	// #nosec G306 -- images are meant to be readable
	if err := fileutil.WriteFileAtomic(path, data, filePermissions); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteOutput, err)
	}
	return nil
}

// htmlOutputPath swaps the image extension for .html.
func htmlOutputPath(pngPath string) string {
	return strings.TrimSuffix(pngPath, filepath.Ext(pngPath)) + ".html"
}

// printResults outputs render results and returns the number of failures.
// A lone failure is left to the caller's error report.
func printResults(results []renderResult, quiet, verbose bool, env *Environment) int {
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			if len(results) > 1 {
				fmt.Fprintf(env.Stderr, "FAILED %s: %v\n", displayName(r.InputPath), r.Err)
			}
			continue
		}
		if quiet || r.OutputPath == stdio {
			continue
		}
		if verbose {
			fmt.Fprintf(env.Stderr, "%s -> %s (%v)\n", displayName(r.InputPath), r.OutputPath, r.Duration.Round(time.Millisecond))
		} else {
			fmt.Fprintf(env.Stderr, "Created %s\n", r.OutputPath)
		}
	}

	if !quiet && len(results) > 1 {
		fmt.Fprintf(env.Stderr, "\n%d succeeded, %d failed\n", len(results)-failed, failed)
	}
	return failed
}

func displayName(path string) string {
	if path == stdio {
		return "<stdin>"
	}
	return path
}
