package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DecodeUnit parses canonical (or any valid) unit JSON.
// Unknown fields are rejected so that typos in fixtures surface early.
func DecodeUnit(data []byte) (*Unit, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var u Unit
	if err := dec.Decode(&u); err != nil {
		return nil, fmt.Errorf("decode unit: %w", err)
	}
	if u.Name == "" {
		return nil, fmt.Errorf("decode unit: name is required")
	}
	return &u, nil
}

// EncodeUnit produces the canonical bytes for a unit.
func EncodeUnit(u *Unit) ([]byte, error) {
	if u == nil {
		return nil, fmt.Errorf("encode unit: nil unit")
	}
	data, err := MarshalCanonical(u)
	if err != nil {
		return nil, fmt.Errorf("encode unit %s: %w", u.Name, err)
	}
	return data, nil
}

// MustEncodeUnit is like EncodeUnit but panics on error.
// Use only in tests or when the unit is known to be valid.
func MustEncodeUnit(u *Unit) []byte {
	data, err := EncodeUnit(u)
	if err != nil {
		panic(err)
	}
	return data
}
