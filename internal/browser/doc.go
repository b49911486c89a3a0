// Package browser is the headless browser capability used to rasterize card
// documents.
//
// A Launcher starts one Session per render. A Session owns exactly one browser
// process and must be closed by its caller on every exit path. Two backends
// implement the interfaces:
//
//   - rod (default): go-rod with its launcher, killing the whole process group on close
//   - chromedp: chromedp exec allocator with a throwaway profile directory
//
// Neither backend downloads a browser: the binary must be installed locally or
// named explicitly through Options.Bin.
package browser
