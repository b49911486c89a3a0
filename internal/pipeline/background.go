package pipeline

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Style defaults.
const (
	DefaultCardBackground  = "#ffffff"
	DefaultOuterBackground = "linear-gradient(to bottom right, #a8b5c1, #8d9aa8)"
	DefaultWidth           = 680

	// darkenAmount is subtracted from each channel to derive the second gradient stop.
	darkenAmount = 40
)

// outerGradientTemplate renders a two-stop diagonal gradient from a start and end color.
const outerGradientTemplate = "linear-gradient(to bottom right, %s, %s)"

// hexColorPattern matches #RGB and #RRGGBB, case-insensitive.
var hexColorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// StyleInput holds the optional, user-provided style values of a render request.
type StyleInput struct {
	CardBackground  string
	OuterBackground string
	Width           int
}

// Style is the resolved, immutable styling for a single render.
type Style struct {
	CardBackground  string
	OuterBackground string
	Width           int
}

// ResolveStyle applies defaults and color derivation to user input.
func ResolveStyle(in StyleInput) Style {
	return Style{
		CardBackground:  ResolveCardBackground(in.CardBackground),
		OuterBackground: ResolveOuterBackground(in.OuterBackground),
		Width:           ResolveWidth(in.Width),
	}
}

// ResolveCardBackground returns input verbatim, or the default white background.
// The value is not validated: invalid CSS is simply ignored by the browser.
func ResolveCardBackground(input string) string {
	if input == "" {
		return DefaultCardBackground
	}
	return input
}

// ResolveOuterBackground computes the CSS background of the outer frame.
//
// An empty input yields DefaultOuterBackground. A hex color (#RGB or #RRGGBB)
// yields a diagonal gradient from that color to a darker variant of itself.
// Anything else is passed through as a raw CSS background value.
func ResolveOuterBackground(input string) string {
	if input == "" {
		return DefaultOuterBackground
	}
	if IsHexColor(input) {
		return fmt.Sprintf(outerGradientTemplate, input, DarkenHexColor(input, darkenAmount))
	}
	return input
}

// ResolveWidth returns the card width in pixels, or DefaultWidth when input is not positive.
// No upper bound is enforced here.
func ResolveWidth(input int) int {
	if input <= 0 {
		return DefaultWidth
	}
	return input
}

// IsHexColor reports whether s is a #RGB or #RRGGBB color.
func IsHexColor(s string) bool {
	return hexColorPattern.MatchString(s)
}

// DarkenHexColor subtracts amount from each RGB channel, clamped at 0,
// and returns the color as lowercase #rrggbb. Short #RGB input is expanded
// first. Input that is not a hex color is returned unchanged.
func DarkenHexColor(hex string, amount int) string {
	if !IsHexColor(hex) {
		return hex
	}
	digits := expandHex(strings.TrimPrefix(hex, "#"))

	var b strings.Builder
	b.Grow(7)
	b.WriteByte('#')
	for i := 0; i < 6; i += 2 {
		// Cannot fail: the pattern guarantees hex digits.
		c, _ := strconv.ParseUint(digits[i:i+2], 16, 8)
		fmt.Fprintf(&b, "%02x", max(int(c)-amount, 0))
	}
	return b.String()
}

// expandHex turns "abc" into "aabbcc". Six-digit input is returned as is.
func expandHex(digits string) string {
	if len(digits) != 3 {
		return digits
	}
	return string([]byte{
		digits[0], digits[0],
		digits[1], digits[1],
		digits[2], digits[2],
	})
}
