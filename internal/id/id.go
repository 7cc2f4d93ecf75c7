package id

import "github.com/google/uuid"

// New returns a random (version 4) UUID string used for frame and delivery ids.
func New() string {
	return uuid.NewString()
}

// Valid reports whether s is a well-formed id.
func Valid(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
