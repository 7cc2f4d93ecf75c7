// Package colormodel converts between hex RGB strings and HSV triples and
// picks legible text colors for a background.
package colormodel

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	// LightText is used on backgrounds darker than ContrastThreshold.
	LightText = "#FFFFFF"
	// DarkText is used on every other background.
	DarkText = "#292524"
	// ContrastThreshold is the luma cutoff on the 0-255 scale.
	ContrastThreshold = 140.0
)

var ErrInvalidFormat = errors.New("invalid hex color format")

var validHex = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// HSV holds a hue in degrees [0,360) and saturation/value as percentages.
type HSV struct {
	H float64 `json:"h"`
	S float64 `json:"s"`
	V float64 `json:"v"`
}

// HexToHSV parses "#RGB" or "#RRGGBB". Any other shape fails with
// ErrInvalidFormat.
func HexToHSV(hex string) (HSV, error) {
	r, g, b, err := parseStrict(hex)
	if err != nil {
		return HSV{}, err
	}
	return rgbToHSV(r, g, b), nil
}

// HexToHSVFrom behaves like HexToHSV but keeps prev's hue when the parsed
// color is achromatic, so a hue slider does not snap back to 0 while the
// user drags saturation to zero.
func HexToHSVFrom(hex string, prev HSV) (HSV, error) {
	hsv, err := HexToHSV(hex)
	if err != nil {
		return HSV{}, err
	}
	if hsv.S == 0 {
		hsv.H = prev.H
	}
	return hsv, nil
}

func rgbToHSV(r8, g8, b8 uint8) HSV {
	r := float64(r8) / 255
	g := float64(g8) / 255
	b := float64(b8) / 255

	maxC := math.Max(r, math.Max(g, b))
	minC := math.Min(r, math.Min(g, b))
	delta := maxC - minC

	var s float64
	if maxC != 0 {
		s = delta / maxC * 100
	}

	var h float64
	switch {
	case delta == 0:
		h = 0
	case maxC == r:
		h = math.Mod((g-b)/delta, 6) * 60
	case maxC == g:
		h = ((b-r)/delta + 2) * 60
	default:
		h = ((r-g)/delta + 4) * 60
	}
	if h < 0 {
		h += 360
	}

	return HSV{H: h, S: s, V: maxC * 100}
}

// HSVToHex converts hue in degrees and saturation/value in [0,1] to a
// lowercase "#rrggbb" string. Hue wraps; s and v are clamped.
func HSVToHex(h, s, v float64) string {
	if math.IsNaN(h) || math.IsInf(h, 0) {
		h = 0
	}
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	s = clamp01(s)
	v = clamp01(v)

	sector := math.Floor(h / 60)
	f := h/60 - sector
	p := v * (1 - s)
	q := v * (1 - f*s)
	t := v * (1 - (1-f)*s)

	var r, g, b float64
	switch int(sector) % 6 {
	case 0:
		r, g, b = v, t, p
	case 1:
		r, g, b = q, v, p
	case 2:
		r, g, b = p, v, t
	case 3:
		r, g, b = p, q, v
	case 4:
		r, g, b = t, p, v
	default:
		r, g, b = v, p, q
	}

	return fmt.Sprintf("#%02x%02x%02x", toChannel(r), toChannel(g), toChannel(b))
}

// Brightness returns the luma of hex on a 0-255 scale. The leading '#' is
// optional and shorthand is expanded. Unparseable input reports 255 so the
// caller treats it as a light background.
func Brightness(hex string) float64 {
	r, g, b, err := parseLenient(hex)
	if err != nil {
		return 255
	}
	return (float64(r)*299 + float64(g)*587 + float64(b)*114) / 1000
}

// OptimalTextColor picks the text color for a background. It is a one-shot
// derivation: callers re-run it on every background change.
func OptimalTextColor(background string) string {
	if Brightness(background) < ContrastThreshold {
		return LightText
	}
	return DarkText
}

// IsValidHex accepts only the full "#RRGGBB" form. Shorthand is rejected.
func IsValidHex(value string) bool {
	return validHex.MatchString(value)
}

func parseStrict(hex string) (uint8, uint8, uint8, error) {
	if !strings.HasPrefix(hex, "#") || (len(hex) != 4 && len(hex) != 7) {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrInvalidFormat, hex)
	}
	return parseDigits(hex[1:])
}

func parseLenient(hex string) (uint8, uint8, uint8, error) {
	digits := strings.TrimPrefix(hex, "#")
	if len(digits) != 3 && len(digits) != 6 {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrInvalidFormat, hex)
	}
	return parseDigits(digits)
}

func parseDigits(digits string) (uint8, uint8, uint8, error) {
	if len(digits) == 3 {
		digits = string([]byte{digits[0], digits[0], digits[1], digits[1], digits[2], digits[2]})
	}
	v, err := strconv.ParseUint(digits, 16, 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrInvalidFormat, digits)
	}
	return uint8(v >> 16), uint8(v >> 8), uint8(v), nil
}

func toChannel(x float64) int {
	c := int(math.Round(x * 255))
	if c < 0 {
		return 0
	}
	if c > 255 {
		return 255
	}
	return c
}

func clamp01(x float64) float64 {
	if x < 0 || math.IsNaN(x) {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
