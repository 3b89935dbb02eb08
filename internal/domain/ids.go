package domain

import "github.com/google/uuid"

// ID is the opaque 128-bit identifier carried by every entity in the
// financial core.
type ID = uuid.UUID

// NewID mints a fresh entity identifier.
func NewID() ID {
	return uuid.New()
}

// ZeroID is the nil identifier, used as the not-yet-persisted sentinel.
var ZeroID ID
