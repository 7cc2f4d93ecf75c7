package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dunamismax/snapframe/internal/colormodel"
)

var ErrInvalidUpdate = errors.New("invalid frame update")

type TextStyle string

const (
	TextStyleBold          TextStyle = "bold"
	TextStyleItalic        TextStyle = "italic"
	TextStyleUnderline     TextStyle = "underline"
	TextStyleStrikethrough TextStyle = "strikethrough"
)

// FrameConfig is the styling of one framed photo.
type FrameConfig struct {
	Title           string `json:"title"`
	Date            string `json:"date"`
	TextColor       string `json:"text_color"`
	BackgroundColor string `json:"background_color"`
	FrameColor      string `json:"frame_color"`
	FontFamily      string `json:"font_family"`
	Bold            bool   `json:"bold"`
	Italic          bool   `json:"italic"`
	Underline       bool   `json:"underline"`
	Strikethrough   bool   `json:"strikethrough"`
	CornerRadius    int    `json:"corner_radius"`
	Filter          string `json:"filter"`
}

type Frame struct {
	ID        string      `json:"id"`
	Config    FrameConfig `json:"config"`
	PhotoKey  string      `json:"photo_key"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func DefaultFrameConfig(now time.Time) FrameConfig {
	return FrameConfig{
		Title:           "",
		Date:            FormatDate(now),
		TextColor:       colormodel.DarkText,
		BackgroundColor: "#ffffff",
		FrameColor:      "#ffffff",
		FontFamily:      Fonts[0].Value,
		Bold:            true,
		CornerRadius:    10,
		Filter:          "none",
	}
}

// Update is one field change. The set of implementations is closed to this
// package so Apply handles every case.
type Update interface {
	Field() string
	apply(c *FrameConfig) error
}

type (
	SetTitle           string
	SetDate            string
	SetTextColor       string
	SetBackgroundColor string
	SetFrameColor      string
	SetFontFamily      string
	SetCornerRadius    int
	SetFilter          string
)

type SetTextStyle struct {
	Style   TextStyle
	Enabled bool
}

func (SetTitle) Field() string { return "title" }
func (SetDate) Field() string { return "date" }
func (SetTextColor) Field() string { return "text_color" }
func (SetBackgroundColor) Field() string { return "background_color" }
func (SetFrameColor) Field() string { return "frame_color" }
func (SetFontFamily) Field() string { return "font_family" }
func (SetCornerRadius) Field() string { return "corner_radius" }
func (SetFilter) Field() string { return "filter" }
func (u SetTextStyle) Field() string { return string(u.Style) }

func (u SetTitle) apply(c *FrameConfig) error {
	c.Title = string(u)
	return nil
}

func (u SetDate) apply(c *FrameConfig) error {
	t, err := ParseDate(string(u))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidUpdate, err)
	}
	c.Date = FormatDate(t)
	return nil
}

func (u SetTextColor) apply(c *FrameConfig) error {
	color, err := validColor(u.Field(), string(u))
	if err != nil {
		return err
	}
	c.TextColor = color
	return nil
}

func (u SetBackgroundColor) apply(c *FrameConfig) error {
	color, err := validColor(u.Field(), string(u))
	if err != nil {
		return err
	}
	c.BackgroundColor = color
	return nil
}

// apply also re-derives the text color so the caption stays legible on the
// new frame.
func (u SetFrameColor) apply(c *FrameConfig) error {
	color, err := validColor(u.Field(), string(u))
	if err != nil {
		return err
	}
	c.FrameColor = color
	c.TextColor = colormodel.OptimalTextColor(color)
	return nil
}

func (u SetFontFamily) apply(c *FrameConfig) error {
	font, ok := LookupFont(string(u))
	if !ok {
		return fmt.Errorf("%w: unknown font %q", ErrInvalidUpdate, string(u))
	}
	c.FontFamily = font.Value
	return nil
}

func (u SetCornerRadius) apply(c *FrameConfig) error {
	if int(u) < MinCornerRadius || int(u) > MaxCornerRadius {
		return fmt.Errorf("%w: corner_radius must be between %d and %d", ErrInvalidUpdate, MinCornerRadius, MaxCornerRadius)
	}
	c.CornerRadius = int(u)
	return nil
}

func (u SetFilter) apply(c *FrameConfig) error {
	filter, ok := LookupFilter(string(u))
	if !ok {
		return fmt.Errorf("%w: unknown filter %q", ErrInvalidUpdate, string(u))
	}
	c.Filter = filter.Value
	return nil
}

func (u SetTextStyle) apply(c *FrameConfig) error {
	switch u.Style {
	case TextStyleBold:
		c.Bold = u.Enabled
	case TextStyleItalic:
		c.Italic = u.Enabled
	case TextStyleUnderline:
		c.Underline = u.Enabled
	case TextStyleStrikethrough:
		c.Strikethrough = u.Enabled
	default:
		return fmt.Errorf("%w: unknown text style %q", ErrInvalidUpdate, u.Style)
	}
	return nil
}

// Apply returns a copy of c with updates applied in order. On error c is
// returned unchanged alongside the error.
func (c FrameConfig) Apply(updates ...Update) (FrameConfig, error) {
	next := c
	for i, u := range updates {
		if u == nil {
			return c, fmt.Errorf("%w: updates[%d] is empty", ErrInvalidUpdate, i)
		}
		if err := u.apply(&next); err != nil {
			return c, fmt.Errorf("updates[%d] (%s): %w", i, u.Field(), err)
		}
	}
	return next, nil
}

func validColor(field, value string) (string, error) {
	if !colormodel.IsValidHex(value) {
		return "", fmt.Errorf("%w: %s must be #RRGGBB, got %q", ErrInvalidUpdate, field, value)
	}
	return value, nil
}

// UpdateSpec is the wire form of an Update: {"field": "...", "value": ...}.
type UpdateSpec struct {
	Field string          `json:"field"`
	Value json.RawMessage `json:"value"`
}

func (s UpdateSpec) Decode() (Update, error) {
	field := strings.ToLower(strings.TrimSpace(s.Field))
	if len(s.Value) == 0 {
		return nil, fmt.Errorf("%w: %s requires a value", ErrInvalidUpdate, field)
	}

	switch field {
	case "title":
		v, err := decodeValue[string](field, s.Value)
		return SetTitle(v), err
	case "date":
		v, err := decodeValue[string](field, s.Value)
		return SetDate(v), err
	case "text_color":
		v, err := decodeValue[string](field, s.Value)
		return SetTextColor(v), err
	case "background_color":
		v, err := decodeValue[string](field, s.Value)
		return SetBackgroundColor(v), err
	case "frame_color":
		v, err := decodeValue[string](field, s.Value)
		return SetFrameColor(v), err
	case "font_family":
		v, err := decodeValue[string](field, s.Value)
		return SetFontFamily(v), err
	case "corner_radius":
		v, err := decodeValue[int](field, s.Value)
		return SetCornerRadius(v), err
	case "filter":
		v, err := decodeValue[string](field, s.Value)
		return SetFilter(v), err
	case string(TextStyleBold), string(TextStyleItalic), string(TextStyleUnderline), string(TextStyleStrikethrough):
		v, err := decodeValue[bool](field, s.Value)
		return SetTextStyle{Style: TextStyle(field), Enabled: v}, err
	case "":
		return nil, fmt.Errorf("%w: field is required", ErrInvalidUpdate)
	default:
		return nil, fmt.Errorf("%w: unknown field %q", ErrInvalidUpdate, s.Field)
	}
}

// DecodeUpdates decodes every entry, stopping at the first bad one.
func DecodeUpdates(specs []UpdateSpec) ([]Update, error) {
	updates := make([]Update, 0, len(specs))
	for i, entry := range specs {
		u, err := entry.Decode()
		if err != nil {
			return nil, fmt.Errorf("updates[%d]: %w", i, err)
		}
		updates = append(updates, u)
	}
	return updates, nil
}

func decodeValue[T any](field string, raw json.RawMessage) (T, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("%w: %s has wrong type: %v", ErrInvalidUpdate, field, err)
	}
	return v, nil
}
