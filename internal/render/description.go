package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/dunamismax/snapframe/internal/colormodel"
	"github.com/dunamismax/snapframe/internal/domain"
)

const (
	OutputFormat   = "png"
	OutputMimeType = "image/png"
)

// Description is everything an external renderer needs to draw the framed
// photo. Values are resolved to CSS so the renderer does no lookups.
type Description struct {
	FrameID     string     `json:"frame_id"`
	Photo       Photo      `json:"photo"`
	Caption     Caption    `json:"caption"`
	Frame       FrameStyle `json:"frame"`
	Filter      Filter     `json:"filter"`
	Output      Output     `json:"output"`
	RequestedAt time.Time  `json:"requested_at"`
}

type Photo struct {
	URL    string `json:"url"`
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type Caption struct {
	Title          string `json:"title"`
	Date           string `json:"date"`
	Color          string `json:"color"`
	FontName       string `json:"font_name"`
	FontFamily     string `json:"font_family"`
	FontWeight     string `json:"font_weight"`
	FontStyle      string `json:"font_style"`
	TextDecoration string `json:"text_decoration"`
}

type FrameStyle struct {
	Color           string `json:"color"`
	BackgroundColor string `json:"background_color"`
	CornerRadiusPx  int    `json:"corner_radius_px"`
}

type Filter struct {
	Name string `json:"name"`
	CSS  string `json:"css"`
}

type Output struct {
	Format   string `json:"format"`
	MimeType string `json:"mime_type"`
}

// Describe validates cfg and resolves it into a Description.
func Describe(frameID string, cfg domain.FrameConfig, photo Photo, requestedAt time.Time) (Description, error) {
	if strings.TrimSpace(frameID) == "" {
		return Description{}, fmt.Errorf("frame id is required")
	}
	colors := []struct{ name, value string }{
		{"text_color", cfg.TextColor},
		{"frame_color", cfg.FrameColor},
		{"background_color", cfg.BackgroundColor},
	}
	for _, c := range colors {
		if !colormodel.IsValidHex(c.value) {
			return Description{}, fmt.Errorf("%s %q is not a #RRGGBB color", c.name, c.value)
		}
	}

	font, ok := domain.LookupFont(cfg.FontFamily)
	if !ok {
		return Description{}, fmt.Errorf("unknown font %q", cfg.FontFamily)
	}
	filter, ok := domain.LookupFilter(cfg.Filter)
	if !ok {
		return Description{}, fmt.Errorf("unknown filter %q", cfg.Filter)
	}
	radius := min(max(cfg.CornerRadius, domain.MinCornerRadius), domain.MaxCornerRadius)

	return Description{
		FrameID: frameID,
		Photo:   photo,
		Caption: Caption{
			Title:          cfg.Title,
			Date:           cfg.Date,
			Color:          cfg.TextColor,
			FontName:       font.Name,
			FontFamily:     font.Value,
			FontWeight:     fontWeight(cfg.Bold),
			FontStyle:      fontStyle(cfg.Italic),
			TextDecoration: textDecoration(cfg.Underline, cfg.Strikethrough),
		},
		Frame: FrameStyle{
			Color:           cfg.FrameColor,
			BackgroundColor: cfg.BackgroundColor,
			CornerRadiusPx:  radius,
		},
		Filter: Filter{
			Name: filter.Name,
			CSS:  filter.Value,
		},
		Output: Output{
			Format:   OutputFormat,
			MimeType: OutputMimeType,
		},
		RequestedAt: requestedAt.UTC(),
	}, nil
}

func fontWeight(bold bool) string {
	if bold {
		return "bold"
	}
	return "normal"
}

func fontStyle(italic bool) string {
	if italic {
		return "italic"
	}
	return "normal"
}

func textDecoration(underline, strikethrough bool) string {
	var parts []string
	if underline {
		parts = append(parts, "underline")
	}
	if strikethrough {
		parts = append(parts, "line-through")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, " ")
}
