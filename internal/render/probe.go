package render

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	_ "golang.org/x/image/webp"
)

// MaxPhotoPixels bounds the photos accepted for export.
const MaxPhotoPixels = 100_000_000

var ErrUnsupportedPhoto = errors.New("unsupported photo")

type PhotoInfo struct {
	Format string
	Width  int
	Height int
}

// ProbePhoto reads only the image header to learn format and dimensions.
func ProbePhoto(r io.Reader) (PhotoInfo, error) {
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return PhotoInfo{}, fmt.Errorf("%w: unknown format", ErrUnsupportedPhoto)
		}
		return PhotoInfo{}, fmt.Errorf("decode photo header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return PhotoInfo{}, fmt.Errorf("%w: empty image %dx%d", ErrUnsupportedPhoto, cfg.Width, cfg.Height)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPhotoPixels {
		return PhotoInfo{}, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrUnsupportedPhoto, cfg.Width, cfg.Height, MaxPhotoPixels)
	}
	return PhotoInfo{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}
