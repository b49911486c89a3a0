package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	md2png "github.com/alnah/go-md2png"
	"github.com/alnah/go-md2png/internal/fileutil"
)

// Sentinel errors for input discovery.
var (
	ErrInvalidExtension   = errors.New("file must have .md or .markdown extension")
	ErrInvalidWorkerCount = errors.New("invalid worker count")
	ErrNoMarkdownFiles    = errors.New("no markdown files found")
)

// stdio names stdin as input and stdout as output.
const stdio = "-"

// renderJob is one Markdown source and where its output goes.
// An OutputPath of "-" means stdout.
type renderJob struct {
	InputPath  string
	OutputPath string
}

// discoverJobs expands inputs (files, directories, or "-") into render jobs.
// Directories are walked recursively; their layout is mirrored under output.
// A single input may target an exact output file when output carries ext.
func discoverJobs(inputs []string, output, ext string) ([]renderJob, error) {
	var jobs []renderJob
	for _, input := range inputs {
		found, err := discoverInput(input, output, ext)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, found...)
	}

	if output == stdio && len(jobs) > 1 {
		return nil, fmt.Errorf("%w: cannot write %d renders to stdout", ErrUsage, len(jobs))
	}
	if len(jobs) == 1 && isExactOutput(output, ext) {
		jobs[0].OutputPath = output
	}
	return jobs, nil
}

func discoverInput(input, output, ext string) ([]renderJob, error) {
	outDir := outputDir(output, ext)

	if input == stdio {
		out, err := jobOutputPath(input, outDir, output, ext)
		if err != nil {
			return nil, err
		}
		return []renderJob{{InputPath: input, OutputPath: out}}, nil
	}

	info, err := os.Stat(input)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadMarkdown, err)
	}

	if !info.IsDir() {
		if err := validateMarkdownExtension(input); err != nil {
			return nil, err
		}
		out, err := jobOutputPath(input, outDir, output, ext)
		if err != nil {
			return nil, err
		}
		return []renderJob{{InputPath: input, OutputPath: out}}, nil
	}

	var jobs []renderJob
	err = filepath.WalkDir(input, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("scanning %s: %w", path, err)
		}
		if d.IsDir() || !isMarkdownExt(filepath.Ext(path)) {
			return nil
		}
		dir := outDir
		if dir != "" {
			rel, relErr := filepath.Rel(input, filepath.Dir(path))
			if relErr == nil {
				dir = filepath.Join(outDir, rel)
			}
		}
		out, err := jobOutputPath(path, dir, output, ext)
		if err != nil {
			return err
		}
		jobs = append(jobs, renderJob{InputPath: path, OutputPath: out})
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoMarkdownFiles, input)
	}
	return jobs, nil
}

func jobOutputPath(input, outDir, output, ext string) (string, error) {
	if output == stdio {
		return stdio, nil
	}
	return fileutil.OutputPath(input, outDir, ext)
}

// outputDir returns the directory part of output: "" for siblings of the
// input, the parent when output names a file.
func outputDir(output, ext string) string {
	switch {
	case output == "" || output == stdio:
		return ""
	case isExactOutput(output, ext):
		return filepath.Dir(output)
	default:
		return output
	}
}

// isExactOutput reports whether output names a file rather than a directory.
func isExactOutput(output, ext string) bool {
	return output != stdio && strings.EqualFold(filepath.Ext(output), ext) && !fileutil.DirExists(output)
}

// validateMarkdownExtension checks that the file has a .md or .markdown extension.
func validateMarkdownExtension(path string) error {
	ext := filepath.Ext(path)
	if !isMarkdownExt(ext) {
		return fmt.Errorf("%w: got %q", ErrInvalidExtension, ext)
	}
	return nil
}

func isMarkdownExt(ext string) bool {
	ext = strings.ToLower(ext)
	return ext == ".md" || ext == ".markdown"
}

// looksLikeMarkdown reports whether arg names a Markdown file, so that
// "md2png card.md" works without the render command.
func looksLikeMarkdown(arg string) bool {
	return isMarkdownExt(filepath.Ext(arg))
}

// validateWorkers checks that the worker count is within valid bounds.
func validateWorkers(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: %d (must be >= 0, 0 means auto)", ErrInvalidWorkerCount, n)
	}
	if n > md2png.MaxPoolSize {
		return fmt.Errorf("%w: %d (maximum is %d)", ErrInvalidWorkerCount, n, md2png.MaxPoolSize)
	}
	return nil
}
