package types

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// ID is a string-backed identifier. Graph entity ids are open-ended strings
// (callers may supply deterministic ids like "meeting:abc"), so unlike a pure
// UUID type, an ID is valid whenever it is non-empty.
type ID string

// NewID generates a fresh UUID v4 ID for entities that have no natural key.
func NewID() ID {
	return ID(uuid.New().String())
}

// ParseID validates a string as an ID. Only emptiness is rejected; any other
// string is a legal graph identifier.
func ParseID(s string) (ID, error) {
	if s == "" {
		return "", fmt.Errorf("ID cannot be empty")
	}
	return ID(s), nil
}

// Validate reports whether the ID is usable.
func (id ID) Validate() error {
	if id == "" {
		return fmt.Errorf("ID cannot be empty")
	}
	return nil
}

// String returns the string representation of the ID.
func (id ID) String() string {
	return string(id)
}

// IsZero checks if the ID is empty.
func (id ID) IsZero() bool {
	return id == ""
}

// MarshalJSON implements json.Marshaler, serializing the ID as a string.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(string(id))
}

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("failed to unmarshal ID: %w", err)
	}
	*id = ID(s)
	return nil
}
