package transform

import (
	"fmt"

	"github.com/roach88/weaver/internal/ir"
)

// Codec converts between raw unit bytes and the mutable tree.
type Codec interface {
	// Decode parses raw. An empty unit decodes to a unit with only a name.
	Decode(name string, raw []byte, empty bool) (*ir.Unit, error)

	// Encode serializes the unit.
	Encode(u *ir.Unit) ([]byte, error)
}

// CanonicalCodec is the canonical JSON unit format.
type CanonicalCodec struct{}

// Decode implements Codec. The decoded name must match name.
func (CanonicalCodec) Decode(name string, raw []byte, empty bool) (*ir.Unit, error) {
	if empty {
		return &ir.Unit{Name: name}, nil
	}
	u, err := ir.DecodeUnit(raw)
	if err != nil {
		return nil, err
	}
	if u.Name != name {
		return nil, fmt.Errorf("unit bytes declare name %q, want %q", u.Name, name)
	}
	return u, nil
}

// Encode implements Codec.
func (CanonicalCodec) Encode(u *ir.Unit) ([]byte, error) {
	return ir.EncodeUnit(u)
}
