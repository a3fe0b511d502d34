package domain

import "github.com/google/uuid"

// EditorID identifies the account that published a listing.
// It is a thin wrapper around uuid.UUID to provide type safety at the domain layer.
type EditorID uuid.UUID

// String returns the canonical UUID form.
func (id EditorID) String() string { return uuid.UUID(id).String() }
