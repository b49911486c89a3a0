package main

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	md2png "github.com/alnah/go-md2png"
	"github.com/alnah/go-md2png/internal/config"
)

// ---------------------------------------------------------------------------
// Test Infrastructure - Fake renderer and environment
// ---------------------------------------------------------------------------

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

// fakeRenderer records inputs and returns canned results.
type fakeRenderer struct {
	mu       sync.Mutex
	inputs   []md2png.Input
	err      error
	availErr error
	failOn   string // fail only when markdown contains this
}

func (f *fakeRenderer) Render(_ context.Context, in md2png.Input) (*md2png.Result, error) {
	f.mu.Lock()
	f.inputs = append(f.inputs, in)
	f.mu.Unlock()

	if in.Markdown == "" {
		return nil, &md2png.RenderError{Kind: md2png.KindMissingInput, Err: md2png.ErrEmptyMarkdown}
	}
	if f.err != nil && (f.failOn == "" || strings.Contains(in.Markdown, f.failOn)) {
		return nil, f.err
	}

	res := &md2png.Result{HTML: []byte("<html>" + in.Markdown + "</html>")}
	if !in.HTMLOnly {
		res.PNG = pngMagic
	}
	return res, nil
}

func (f *fakeRenderer) Available() error {
	return f.availErr
}

func (f *fakeRenderer) calls() []md2png.Input {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]md2png.Input(nil), f.inputs...)
}

// testEnv bundles an Environment with its captured output.
type testEnv struct {
	*Environment
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	cfg    *config.Config // last config handed to NewRenderer
}

// newTestEnv returns an environment whose process variables are vars and
// whose renderer is r.
func newTestEnv(t *testing.T, r *fakeRenderer, vars map[string]string) *testEnv {
	t.Helper()

	te := &testEnv{stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}}
	te.Environment = &Environment{
		Now:    func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) },
		Stdin:  strings.NewReader(""),
		Stdout: te.stdout,
		Stderr: te.stderr,
		Getenv: func(key string) string { return vars[key] },
		Environ: func() []string {
			out := make([]string, 0, len(vars))
			for k, v := range vars {
				out = append(out, k+"="+v)
			}
			return out
		},
		NewRenderer: func(cfg *config.Config) (renderService, error) {
			te.cfg = cfg
			return r, nil
		},
	}
	return te
}
