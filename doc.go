// Package md2png renders Markdown as a styled PNG "card" using headless Chrome.
//
// # Quick Start
//
//	conv, err := md2png.NewConverter()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := conv.Render(ctx, md2png.Input{
//	    Markdown:        "# Hello\n\nWorld",
//	    OuterBackground: "#336699",
//	    Width:           800,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile("card.png", result.PNG, 0o644)
//
// The result carries the PNG bytes (result.PNG), the HTML document the image
// was captured from (result.HTML), and the resolved style. Set Input.HTMLOnly
// to skip the browser.
//
// # Rendering Pipeline
//
//  1. Markdown to HTML fragment via goldmark (GFM, footnotes, chroma highlighting)
//  2. Background and width resolution: a hex outer background becomes a
//     gradient from the color to a darker shade of it
//  3. Card document synthesis from an embedded template and stylesheet
//  4. One headless browser session per render: viewport, content, image
//     settle wait, and a transparent screenshot of the ".screenshot-target"
//     element, with the session torn down on every path
//
// # Errors
//
// Render returns a *RenderError whose Kind is one of KindMissingInput,
// KindEnvironmentUnavailable, KindTemplateIntegrity or KindRenderFailure.
// StatusCode maps it to 400 or 500. The underlying sentinel errors
// (ErrEmptyMarkdown, ErrPageLoad, ...) and context errors stay reachable
// with errors.Is.
//
// # Browser Backends
//
// go-rod is the default. chromedp is selected with
// WithBrowser(md2png.BackendChromedp, ""). Tests and embedders can supply
// their own Launcher with WithLauncher.
//
// # Concurrency
//
// A Converter is safe for concurrent use. RenderPool caps how many renders,
// and so browser processes, run at once:
//
//	pool := md2png.NewRenderPool(conv, md2png.ResolvePoolSize(0))
//	result, err := pool.Render(ctx, input)
package md2png
