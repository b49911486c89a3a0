package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: md2png <command> [flags] [args]")
	fmt.Fprintln(w, "       md2png <file.md> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  render     Render markdown to PNG cards")
	fmt.Fprintln(w, "  serve      Serve the HTTP render API")
	fmt.Fprintln(w, "  doctor     Check the browser and environment")
	fmt.Fprintln(w, "  config     Print the effective configuration")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'md2png help <command>' for details on a specific command.")
}

// printStyleUsage prints the card and browser flags shared by render and serve.
func printStyleUsage(w io.Writer) {
	fmt.Fprintln(w, "Card:")
	fmt.Fprintln(w, "  -W, --width <n>           Card width in pixels (default 680)")
	fmt.Fprintln(w, "      --card-bg <color>     Card background (default #ffffff)")
	fmt.Fprintln(w, "      --outer-bg <css>      Frame background: hex color or CSS background")
	fmt.Fprintln(w, "                            (default: gradient derived from the card)")
	fmt.Fprintln(w, "      --scale <f>           Device scale factor, 1-4 (2 = retina)")
	fmt.Fprintln(w, "      --raw-html            Pass raw HTML in markdown through (default true)")
	fmt.Fprintln(w, "      --highlight-style <s> Chroma style for code blocks (default github)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Timing:")
	fmt.Fprintln(w, "  -t, --timeout <d>         Whole render timeout, e.g. 30s (0 = none)")
	fmt.Fprintln(w, "      --image-timeout <d>   Per-image load timeout (default 10s)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Browser:")
	fmt.Fprintln(w, "      --backend <s>         Browser backend: rod, chromedp (default rod)")
	fmt.Fprintln(w, "      --browser-bin <path>  Chrome/Chromium executable")
	fmt.Fprintln(w, "      --no-sandbox          Disable the Chrome sandbox (containers, CI)")
	fmt.Fprintln(w, "      --asset-path <dir>    Override templates/card.html and styles/card.css")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output Control:")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path (or MD2PNG_CONFIG)")
	fmt.Fprintln(w, "  -q, --quiet               Only show errors")
	fmt.Fprintln(w, "  -v, --verbose             Show detailed timing")
}

// printRenderUsage prints usage for the render command.
func printRenderUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: md2png render [input...] [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Render markdown to PNG cards.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Arguments:")
	fmt.Fprintln(w, "  input    Markdown file, directory, or - for stdin (default: stdin)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Input/Output:")
	fmt.Fprintln(w, "  -o, --output <path>       Output file, directory, or - for stdout")
	fmt.Fprintln(w, "  -w, --workers <n>         Parallel renders (0 = auto)")
	fmt.Fprintln(w, "      --html                Also write the HTML document")
	fmt.Fprintln(w, "      --html-only           Write the HTML document only, skip the browser")
	fmt.Fprintln(w)
	printStyleUsage(w)
}

// printServeUsage prints usage for the serve command.
func printServeUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: md2png serve [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Serve the HTTP render API:")
	fmt.Fprintln(w, "  GET  /          health text")
	fmt.Fprintln(w, "  POST /render    JSON {markdown, cardBackground, outerBackground, width}")
	fmt.Fprintln(w, "  GET  /render    same fields as query parameters")
	fmt.Fprintln(w, "  GET  /stats     render pool statistics")
	fmt.Fprintln(w, "  GET  /livez, /readyz")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Server:")
	fmt.Fprintln(w, "  -a, --addr <addr>         Listen address (default :3000)")
	fmt.Fprintln(w, "  -w, --workers <n>         Concurrent renders (0 = auto)")
	fmt.Fprintln(w, "      --monitor             Serve the metrics dashboard at /monitor")
	fmt.Fprintln(w, "      --log-level <s>       debug, info, warn, error")
	fmt.Fprintln(w, "      --log-format <s>      json, console")
	fmt.Fprintln(w)
	printStyleUsage(w)
}

// printDoctorUsage prints usage for the doctor command.
func printDoctorUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: md2png doctor [--json] [--config <name>]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Check that a browser can be found and the environment suits it.")
}

// printConfigUsage prints usage for the config command.
func printConfigUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: md2png config [--config <name>]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Print the effective configuration (defaults, file, MD2PNG_* variables) as YAML.")
}

// runHelp prints help for a specific command.
func runHelp(args []string, env *Environment) {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return
	}

	switch args[0] {
	case cmdRender:
		printRenderUsage(env.Stdout)
	case cmdServe:
		printServeUsage(env.Stdout)
	case cmdDoctor:
		printDoctorUsage(env.Stdout)
	case cmdConfig:
		printConfigUsage(env.Stdout)
	case cmdVersion:
		fmt.Fprintln(env.Stdout, "Usage: md2png version")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show version information.")
	case cmdHelp:
		fmt.Fprintln(env.Stdout, "Usage: md2png help [command]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show help for a command.")
	default:
		fmt.Fprintf(env.Stderr, "Unknown command: %s\n", args[0])
		printUsage(env.Stderr)
	}
}
