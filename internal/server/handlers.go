package server

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	md2png "github.com/alnah/go-md2png"
	"github.com/alnah/go-md2png/internal/config"
	"github.com/alnah/go-md2png/internal/logging"
)

// Response texts.
const (
	healthText         = "Markdown Renderer is running!"
	msgMissingMarkdown = "Markdown content is missing or invalid."
	msgRenderFailed    = "An unexpected error occurred during rendering."
	pngDisposition     = `inline; filename="render.png"`
)

// renderRequest is the POST /render body. Width arrives as a JSON number
// or a numeric string, so it is decoded lazily.
type renderRequest struct {
	Markdown        string          `json:"markdown"`
	CardBackground  string          `json:"cardBackground"`
	OuterBackground string          `json:"outerBackground"`
	Width           json.RawMessage `json:"width"`
}

type handler struct {
	renderer md2png.Renderer
	stats    StatsProvider
	defaults config.RenderConfig
}

func (h *handler) health(c *fiber.Ctx) error {
	return c.SendString(healthText)
}

func (h *handler) renderJSON(c *fiber.Ctx) error {
	var req renderRequest
	if err := c.App().Config().JSONDecoder(c.Body(), &req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, msgMissingMarkdown)
	}
	return h.render(c, req.Markdown, req.CardBackground, req.OuterBackground, parseWidth(rawWidth(req.Width)))
}

func (h *handler) renderQuery(c *fiber.Ctx) error {
	return h.render(c,
		c.Query("markdown"),
		c.Query("cardBackground"),
		c.Query("outerBackground"),
		parseWidth(c.Query("width")),
	)
}

func (h *handler) render(c *fiber.Ctx, markdown, cardBg, outerBg string, width int) error {
	if markdown == "" {
		return jsonError(c, fiber.StatusBadRequest, msgMissingMarkdown)
	}

	input := md2png.Input{
		Markdown:        markdown,
		CardBackground:  firstNonEmpty(cardBg, h.defaults.CardBackground),
		OuterBackground: firstNonEmpty(outerBg, h.defaults.OuterBackground),
		Width:           width,
	}
	if input.Width == 0 {
		input.Width = h.defaults.Width
	}

	requestID := c.GetRespHeader(fiber.HeaderXRequestID)

	res, err := h.renderer.Render(c.UserContext(), input)
	if err != nil {
		status := md2png.StatusCode(err)
		if status == fiber.StatusBadRequest {
			logging.Warn("Rejected render request", "kind", string(md2png.KindOf(err)), "request_id", requestID)
			return jsonError(c, status, msgMissingMarkdown)
		}
		logging.Error("Failed to render markdown", "error", err, "kind", string(md2png.KindOf(err)), "request_id", requestID)
		msg := err.Error()
		if msg == "" {
			msg = msgRenderFailed
		}
		return jsonError(c, status, msg)
	}

	logging.Info("Card rendered", "bytes", len(res.PNG), "width", res.Style.Width, "request_id", requestID)

	c.Set(fiber.HeaderContentType, "image/png")
	c.Set(fiber.HeaderContentDisposition, pngDisposition)
	return c.Send(res.PNG)
}

func (h *handler) poolStats(c *fiber.Ctx) error {
	if h.stats == nil {
		return c.JSON(fiber.Map{"enabled": false})
	}
	s := h.stats.Stats()
	return c.JSON(fiber.Map{
		"enabled":   true,
		"size":      s.Size,
		"in_use":    s.InUse,
		"idle":      s.Idle,
		"waiting":   s.Waiting,
		"completed": s.Completed,
		"failed":    s.Failed,
	})
}

func jsonError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

// rawWidth unwraps a JSON width value: a number stays as is, a string loses
// its quotes, null and absent become empty.
func rawWidth(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	if unquoted, err := strconv.Unquote(s); err == nil {
		return unquoted
	}
	return s
}

// parseWidth reads the leading integer of s, so "900", "900.7" and "900px"
// all give 900. Anything without leading digits gives 0, which the renderer
// treats as its default width.
func parseWidth(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		// Overflow: far beyond any usable width.
		return 0
	}
	return n
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
