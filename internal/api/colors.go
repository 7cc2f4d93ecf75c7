package api

import (
	"net/http"
	"strings"

	"github.com/dunamismax/snapframe/internal/colormodel"
	"github.com/dunamismax/snapframe/internal/domain"
)

func (s *Server) handleContrast(w http.ResponseWriter, r *http.Request) {
	background := strings.TrimSpace(r.URL.Query().Get("background"))
	if !colormodel.IsValidHex(background) {
		writeError(w, http.StatusBadRequest, "background must be a #RRGGBB color")
		return
	}

	hsv, err := colormodel.HexToHSV(background)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"background": background,
		"brightness": colormodel.Brightness(background),
		"text_color": colormodel.OptimalTextColor(background),
		"hsv":        hsv,
	})
}

func (s *Server) handlePresets(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"fonts":                 domain.Fonts,
		"filters":               domain.Filters,
		"text_colors":           domain.TextColors,
		"frame_colors":          domain.FrameColors,
		"corner_radius_presets": domain.CornerRadiusPresets,
		"corner_radius": map[string]int{
			"min": domain.MinCornerRadius,
			"max": domain.MaxCornerRadius,
		},
		"text_styles": domain.TextStyleOptions,
		"defaults":    domain.DefaultFrameConfig(s.now()),
	})
}
