// Package uuid wraps google/uuid so that IDs can be bound
// directly from request URIs and query parameters.
package uuid

import (
	guuid "github.com/google/uuid"
)

// UUID is a UUID that gin can bind from request parameters.
type UUID struct {
	guuid.UUID
}

// Nil is the zero UUID.
var Nil UUID

// New returns a random UUID.
func New() UUID {
	return UUID{guuid.New()}
}

// NewString returns a random UUID as a string.
func NewString() string {
	return guuid.NewString()
}

// UnmarshalParam implements gin's binding.BindUnmarshaler.
//
// An empty parameter binds to the nil UUID so that optional
// ID parameters can be left out.
func (u *UUID) UnmarshalParam(p string) error {
	if p == "" {
		*u = Nil
		return nil
	}

	parsed, err := guuid.Parse(p)
	if err != nil {
		return err
	}

	*u = UUID{parsed}
	return nil
}
