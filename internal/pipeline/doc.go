// Package pipeline turns Markdown into the HTML document that is screenshotted.
//
// Stages:
//   - Markdown to HTML fragment conversion via goldmark (md2html.go)
//   - Local image inlining for file-based input (images.go)
//   - Card and outer background resolution (background.go)
//   - Card document synthesis from the template and stylesheet (document.go)
//
// Rasterization is handled by the root md2png package through a headless
// browser. Everything here is pure string processing and is safe for
// concurrent use.
package pipeline
