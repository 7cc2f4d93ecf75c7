package visitor

import (
	"errors"
)

var (
	ErrConfiguration    = errors.New("visitor store is not configured")
	ErrStoreUnavailable = errors.New("visitor store unavailable")
	ErrRecordNotFound   = errors.New("visitor counter record not found")
	ErrUpdateFailed     = errors.New("visitor counter update failed")
)

const (
	KindConfiguration    = "configuration_error"
	KindStoreUnavailable = "store_unavailable"
	KindRecordNotFound   = "record_not_found"
	KindUpdateFailed     = "update_failed"
	KindInternal         = "internal_error"
)

// Kind names the diagnostic category of err for failure responses.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrUpdateFailed):
		return KindUpdateFailed
	case errors.Is(err, ErrRecordNotFound):
		return KindRecordNotFound
	case errors.Is(err, ErrStoreUnavailable):
		return KindStoreUnavailable
	default:
		return KindInternal
	}
}
