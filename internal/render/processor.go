package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dunamismax/snapframe/internal/domain"
)

type Request struct {
	FrameID     string
	PhotoKey    string
	Config      domain.FrameConfig
	RequestedAt time.Time
}

// PhotoSource is the object storage holding uploaded photos.
type PhotoSource interface {
	OpenObject(ctx context.Context, objectKey string) (io.ReadCloser, error)
	PresignedGetURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error)
}

type Emitter interface {
	Emit(ctx context.Context, desc Description) error
}

// Processor turns an export request into a Description and hands it to the
// renderer: probe photo, sign URL, describe, emit.
type Processor struct {
	photos      PhotoSource
	emitter     Emitter
	photoURLTTL time.Duration
}

func NewProcessor(photos PhotoSource, emitter Emitter, photoURLTTL time.Duration) (*Processor, error) {
	if photos == nil {
		return nil, errors.New("photo source is required")
	}
	if emitter == nil {
		return nil, errors.New("emitter is required")
	}
	if photoURLTTL <= 0 {
		photoURLTTL = time.Hour
	}
	return &Processor{
		photos:      photos,
		emitter:     emitter,
		photoURLTTL: photoURLTTL,
	}, nil
}

func (p *Processor) Process(ctx context.Context, req Request) (Description, error) {
	if strings.TrimSpace(req.FrameID) == "" {
		return Description{}, errors.New("frame_id is required")
	}
	if strings.TrimSpace(req.PhotoKey) == "" {
		return Description{}, errors.New("photo_key is required")
	}

	info, err := p.probe(ctx, req.PhotoKey)
	if err != nil {
		return Description{}, fmt.Errorf("probe stage: %w", err)
	}

	url, err := p.photos.PresignedGetURL(ctx, req.PhotoKey, p.photoURLTTL)
	if err != nil {
		return Description{}, fmt.Errorf("sign stage: %w", err)
	}

	desc, err := Describe(req.FrameID, req.Config, Photo{
		URL:    url,
		Format: info.Format,
		Width:  info.Width,
		Height: info.Height,
	}, req.RequestedAt)
	if err != nil {
		return Description{}, fmt.Errorf("describe stage: %w", err)
	}

	if err := p.emitter.Emit(ctx, desc); err != nil {
		return Description{}, fmt.Errorf("emit stage: %w", err)
	}
	return desc, nil
}

func (p *Processor) probe(ctx context.Context, key string) (PhotoInfo, error) {
	obj, err := p.photos.OpenObject(ctx, key)
	if err != nil {
		return PhotoInfo{}, err
	}
	defer obj.Close()
	return ProbePhoto(obj)
}
