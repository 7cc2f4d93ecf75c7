package colormodel

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"regexp"
	"strconv"
	"testing"

	"github.com/lucasb-eyer/go-colorful"
)

var lowerHex = regexp.MustCompile(`^#[0-9a-f]{6}$`)

func TestHexToHSVKnownColors(t *testing.T) {
	tests := []struct {
		hex  string
		want HSV
	}{
		{"#000000", HSV{0, 0, 0}},
		{"#ffffff", HSV{0, 0, 100}},
		{"#ff0000", HSV{0, 100, 100}},
		{"#00ff00", HSV{120, 100, 100}},
		{"#0000ff", HSV{240, 100, 100}},
		{"#ff00ff", HSV{300, 100, 100}},
		{"#808080", HSV{0, 0, 50.19607843137255}},
		{"#f00", HSV{0, 100, 100}},
		{"#0F0", HSV{120, 100, 100}},
	}

	for _, tc := range tests {
		got, err := HexToHSV(tc.hex)
		if err != nil {
			t.Fatalf("HexToHSV(%q): %v", tc.hex, err)
		}
		if !approx(got.H, tc.want.H) || !approx(got.S, tc.want.S) || !approx(got.V, tc.want.V) {
			t.Fatalf("HexToHSV(%q) = %+v, want %+v", tc.hex, got, tc.want)
		}
	}
}

func TestHexToHSVRejectsMalformedInput(t *testing.T) {
	for _, in := range []string{"", "#", "#12", "#12345", "ffffff", "#gggggg", "#ffffff00", "fff0"} {
		if _, err := HexToHSV(in); !errors.Is(err, ErrInvalidFormat) {
			t.Fatalf("HexToHSV(%q) expected ErrInvalidFormat, got %v", in, err)
		}
	}
}

func TestHexToHSVMatchesColorful(t *testing.T) {
	for r := 0; r <= 255; r += 15 {
		for g := 0; g <= 255; g += 15 {
			for b := 0; b <= 255; b += 15 {
				hex := fmt.Sprintf("#%02x%02x%02x", r, g, b)
				got, err := HexToHSV(hex)
				if err != nil {
					t.Fatalf("HexToHSV(%q): %v", hex, err)
				}

				c, err := colorful.Hex(hex)
				if err != nil {
					t.Fatalf("colorful.Hex(%q): %v", hex, err)
				}
				h, s, v := c.Hsv()
				if !approx(got.H, h) || !approx(got.S, s*100) || !approx(got.V, v*100) {
					t.Fatalf("%s: got %+v, colorful h=%v s=%v v=%v", hex, got, h, s, v)
				}
			}
		}
	}
}

func TestRoundTripWithinOneStep(t *testing.T) {
	for r := 0; r <= 255; r += 5 {
		for g := 0; g <= 255; g += 5 {
			for b := 0; b <= 255; b += 5 {
				hex := fmt.Sprintf("#%02x%02x%02x", r, g, b)
				hsv, err := HexToHSV(hex)
				if err != nil {
					t.Fatalf("HexToHSV(%q): %v", hex, err)
				}
				back := HSVToHex(hsv.H, hsv.S/100, hsv.V/100)
				if !channelsClose(t, hex, back) {
					t.Fatalf("round trip %s -> %+v -> %s", hex, hsv, back)
				}
			}
		}
	}
}

func TestHSVToHexAlwaysWellFormed(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 5000; i++ {
		h := rng.Float64() * 360
		s := rng.Float64()
		v := rng.Float64()
		out := HSVToHex(h, s, v)
		if !lowerHex.MatchString(out) {
			t.Fatalf("HSVToHex(%v, %v, %v) = %q", h, s, v, out)
		}
	}

	for _, tc := range []struct {
		h, s, v float64
	}{
		{0, 0, 0}, {359.999, 1, 1}, {360, 1, 1}, {-60, 1, 1}, {720, 0.5, 0.5}, {120, 2, -1}, {math.NaN(), 1, 1},
	} {
		out := HSVToHex(tc.h, tc.s, tc.v)
		if !lowerHex.MatchString(out) {
			t.Fatalf("HSVToHex(%v, %v, %v) = %q", tc.h, tc.s, tc.v, out)
		}
	}
}

func TestHSVToHexSectors(t *testing.T) {
	tests := []struct {
		h    float64
		want string
	}{
		{0, "#ff0000"},
		{60, "#ffff00"},
		{120, "#00ff00"},
		{180, "#00ffff"},
		{240, "#0000ff"},
		{300, "#ff00ff"},
		{-60, "#ff00ff"},
		{360, "#ff0000"},
	}
	for _, tc := range tests {
		if got := HSVToHex(tc.h, 1, 1); got != tc.want {
			t.Fatalf("HSVToHex(%v, 1, 1) = %s, want %s", tc.h, got, tc.want)
		}
	}
	if got := HSVToHex(200, 0, 0.5); got != "#808080" {
		t.Fatalf("expected mid gray, got %s", got)
	}
}

func TestHexToHSVFromKeepsHueForGrays(t *testing.T) {
	prev := HSV{H: 212, S: 40, V: 60}

	gray, err := HexToHSVFrom("#777777", prev)
	if err != nil {
		t.Fatalf("HexToHSVFrom: %v", err)
	}
	if gray.H != 212 || gray.S != 0 {
		t.Fatalf("expected hue 212 preserved for gray, got %+v", gray)
	}

	red, err := HexToHSVFrom("#ff0000", prev)
	if err != nil {
		t.Fatalf("HexToHSVFrom: %v", err)
	}
	if red.H != 0 {
		t.Fatalf("chromatic color should use its own hue, got %+v", red)
	}

	if _, err := HexToHSVFrom("#zz", prev); !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("expected ErrInvalidFormat, got %v", err)
	}
}

func TestBrightness(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"#ffffff", 255},
		{"#000000", 0},
		{"#FFF", 255},
		{"000", 0},
		{"#ff0000", 76.245},
		{"not-a-color", 255},
		{"#12345", 255},
		{"", 255},
	}
	for _, tc := range tests {
		if got := Brightness(tc.in); !approx(got, tc.want) {
			t.Fatalf("Brightness(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestOptimalTextColor(t *testing.T) {
	tests := []struct {
		background string
		want       string
	}{
		{"#000000", LightText},
		{"#FFFFFF", DarkText},
		{"#ffffff", DarkText},
		{"#d6d3d1", DarkText},
		{"#7F1D1D", LightText},
		{"#8b8b8b", LightText},
		{"#8c8c8c", DarkText},
		{"garbage", DarkText},
	}
	for _, tc := range tests {
		if got := OptimalTextColor(tc.background); got != tc.want {
			t.Fatalf("OptimalTextColor(%q) = %s, want %s", tc.background, got, tc.want)
		}
	}
}

func TestIsValidHex(t *testing.T) {
	tests := map[string]bool{
		"#ffffff":  true,
		"#FFFFFF":  true,
		"#a1B2c3":  true,
		"#FFF":     false,
		"ffffff":   false,
		"#fffffff": false,
		"#gggggg":  false,
		"":         false,
	}
	for in, want := range tests {
		if got := IsValidHex(in); got != want {
			t.Fatalf("IsValidHex(%q) = %v, want %v", in, got, want)
		}
	}
}

func channelsClose(t *testing.T, a, b string) bool {
	t.Helper()
	for i := 1; i < 7; i += 2 {
		x, err := strconv.ParseUint(a[i:i+2], 16, 8)
		if err != nil {
			t.Fatalf("parse %s: %v", a, err)
		}
		y, err := strconv.ParseUint(b[i:i+2], 16, 8)
		if err != nil {
			t.Fatalf("parse %s: %v", b, err)
		}
		if d := int(x) - int(y); d < -1 || d > 1 {
			return false
		}
	}
	return true
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}
