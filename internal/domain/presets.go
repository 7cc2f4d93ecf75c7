package domain

type FontOption struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type FilterOption struct {
	Name         string `json:"name"`
	Value        string `json:"value"`
	PreviewColor string `json:"preview_color"`
}

type RadiusPreset struct {
	Value int    `json:"value"`
	Label string `json:"label"`
}

type TextStyleOption struct {
	Label string    `json:"label"`
	Style TextStyle `json:"style"`
	Class string    `json:"class"`
}

const (
	MinCornerRadius = 0
	MaxCornerRadius = 30
)

var Fonts = []FontOption{
	{Name: "Nunito", Value: `"Nunito", sans-serif`},
	{Name: "Patrick Hand", Value: `"Patrick Hand", cursive`},
	{Name: "Sniglet", Value: `"Sniglet", cursive`},
	{Name: "Roboto Mono", Value: `"Roboto Mono", monospace`},
	{Name: "Inter", Value: `"Inter", sans-serif`},
	{Name: "Playfair Display", Value: `"Playfair Display", serif`},
	{Name: "Dancing Script", Value: `"Dancing Script", cursive`},
	{Name: "Pacifico", Value: `"Pacifico", cursive`},
	{Name: "Caveat", Value: `"Caveat", cursive`},
	{Name: "Shadows Into Light", Value: `"Shadows Into Light", cursive`},
	{Name: "Indie Flower", Value: `"Indie Flower", cursive`},
	{Name: "Permanent Marker", Value: `"Permanent Marker", cursive`},
	{Name: "Amatic SC", Value: `"Amatic SC", cursive`},
	{Name: "Satisfy", Value: `"Satisfy", cursive`},
	{Name: "Lucida Console", Value: `"Lucida Console", Monaco, monospace`},
	{Name: "Arial", Value: `Arial, sans-serif`},
	{Name: "Helvetica", Value: `Helvetica, sans-serif`},
	{Name: "Times New Roman", Value: `"Times New Roman", Times, serif`},
	{Name: "Courier New", Value: `"Courier New", Courier, monospace`},
	{Name: "Georgia", Value: `Georgia, serif`},
	{Name: "Verdana", Value: `Verdana, sans-serif`},
	{Name: "Impact", Value: `Impact, Charcoal, sans-serif`},
}

var Filters = []FilterOption{
	{Name: "Normal", Value: "none", PreviewColor: "bg-gray-200"},
	{Name: "Sepia", Value: "sepia(0.6) contrast(1.1)", PreviewColor: "bg-amber-700"},
	{Name: "B&W", Value: "grayscale(1)", PreviewColor: "bg-gray-700"},
	{Name: "Vintage", Value: "contrast(1.1) brightness(1.1) saturate(1.3) sepia(0.3)", PreviewColor: "bg-orange-300"},
	{Name: "Cool", Value: "hue-rotate(180deg) saturate(0.8)", PreviewColor: "bg-blue-400"},
	{Name: "Warm", Value: "sepia(0.3) saturate(1.4)", PreviewColor: "bg-red-400"},
	{Name: "Dramatic", Value: "contrast(1.2) saturate(1.1) brightness(0.9)", PreviewColor: "bg-indigo-900"},
	{Name: "Fade", Value: "opacity(0.7) brightness(1.1)", PreviewColor: "bg-gray-300"},
}

var TextColors = []string{
	"#000000",
	"#292524",
	"#57534E",
	"#FFFFFF",
	"#172554",
	"#422006",
	"#7F1D1D",
	"#064E3B",
	"#4C1D95",
}

var FrameColors = []string{
	"#ffffff",
	"#fafaf9",
	"#f5f5f4",
	"#d6d3d1",
	"#000000",
	"#fee2e2",
	"#ffedd5",
	"#dcfce7",
	"#dbeafe",
}

var CornerRadiusPresets = []RadiusPreset{
	{Value: 0, Label: "Sharp"},
	{Value: 8, Label: "Soft"},
	{Value: 16, Label: "Round"},
	{Value: 24, Label: "Max"},
}

var TextStyleOptions = []TextStyleOption{
	{Label: "B", Style: TextStyleBold, Class: "font-bold"},
	{Label: "I", Style: TextStyleItalic, Class: "italic"},
	{Label: "U", Style: TextStyleUnderline, Class: "underline"},
	{Label: "S", Style: TextStyleStrikethrough, Class: "line-through"},
}

// LookupFont matches either the display name or the CSS family value.
func LookupFont(nameOrValue string) (FontOption, bool) {
	for _, f := range Fonts {
		if f.Value == nameOrValue || f.Name == nameOrValue {
			return f, true
		}
	}
	return FontOption{}, false
}

// LookupFilter matches either the display name or the CSS filter value.
func LookupFilter(nameOrValue string) (FilterOption, bool) {
	for _, f := range Filters {
		if f.Value == nameOrValue || f.Name == nameOrValue {
			return f, true
		}
	}
	return FilterOption{}, false
}
