package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"

	flag "github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Command names.
const (
	cmdRender  = "render"
	cmdServe   = "serve"
	cmdDoctor  = "doctor"
	cmdConfig  = "config"
	cmdVersion = "version"
	cmdHelp    = "help"
)

var commands = []string{cmdRender, cmdServe, cmdDoctor, cmdConfig, cmdVersion, cmdHelp}

func main() {
	// Error ignored: maxprocs.Set only fails if GOMAXPROCS env is invalid,
	// in which case Go runtime defaults apply and the program continues safely.
	if hasVerboseFlag(os.Args[1:]) {
		_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		}))
	} else {
		_, _ = maxprocs.Set(maxprocs.Logger(func(string, ...interface{}) {}))
	}

	os.Exit(runMain(os.Args, DefaultEnv()))
}

// runMain dispatches to a command and returns the process exit code.
// A Markdown file or "-" as first argument is shorthand for "render".
func runMain(args []string, env *Environment) int {
	if len(args) < 2 {
		printUsage(env.Stderr)
		return ExitUsage
	}

	name, rest := args[1], args[2:]
	if !isCommand(name) {
		if !looksLikeMarkdown(name) && name != "-" {
			fmt.Fprintf(env.Stderr, "Unknown command: %s\n\n", name)
			printUsage(env.Stderr)
			return ExitUsage
		}
		name, rest = cmdRender, args[1:]
	}

	ctx, stop := notifyContext(context.Background())
	defer stop()

	var err error
	switch name {
	case cmdRender:
		err = runRender(ctx, rest, env)
	case cmdServe:
		err = runServe(ctx, rest, env)
	case cmdDoctor:
		return runDoctorCmd(rest, env)
	case cmdConfig:
		err = runConfigCmd(rest, env)
	case cmdVersion:
		fmt.Fprintf(env.Stdout, "go-md2png %s\n", Version)
	case cmdHelp:
		runHelp(rest, env)
	}

	if errors.Is(err, flag.ErrHelp) {
		return ExitSuccess
	}
	if err != nil {
		fmt.Fprintf(env.Stderr, "error: %v%s\n", err, hintFor(err))
		return exitCodeFor(err)
	}
	return ExitSuccess
}

// isCommand reports whether name is a known command. Case sensitive.
func isCommand(name string) bool {
	return slices.Contains(commands, name)
}

// hasVerboseFlag scans raw arguments for -v/--verbose before any command
// parses them, so automaxprocs can log at startup.
func hasVerboseFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--" {
			return false
		}
		if arg == "-v" || arg == "--verbose" {
			return true
		}
	}
	return false
}
