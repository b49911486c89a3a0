// Package server exposes the card renderer over HTTP with fiber.
//
// Routes:
//
//	GET  /         plain-text liveness message
//	POST /render   JSON body {markdown, cardBackground, outerBackground, width}
//	GET  /render   same fields as query parameters
//	GET  /stats    render pool statistics
//	GET  /livez    fiber liveness probe
//	GET  /readyz   readiness probe (browser available)
//	GET  /monitor  fiber monitor page, when enabled
//
// A successful render answers image/png. Every error, including unknown
// routes, answers JSON of the form {"error": "..."}.
package server
