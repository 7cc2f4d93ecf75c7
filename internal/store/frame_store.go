package store

import (
	"context"
	"errors"

	"github.com/dunamismax/snapframe/internal/domain"
)

var ErrFrameNotFound = errors.New("frame not found")

// FrameMutator derives the next version of a frame. Returning an error
// aborts the update and leaves the stored frame untouched.
type FrameMutator func(domain.Frame) (domain.Frame, error)

type FrameStore interface {
	Create(ctx context.Context, frame domain.Frame) error
	Get(ctx context.Context, id string) (domain.Frame, bool, error)
	Update(ctx context.Context, id string, mutate FrameMutator) (domain.Frame, error)
}
