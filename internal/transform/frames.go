package transform

import (
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/weaver/internal/ir"
	"github.com/roach88/weaver/internal/pass"
	"github.com/roach88/weaver/internal/source"
)

// DecodeFunc parses unit bytes returned by a hierarchy.
type DecodeFunc func(name string, raw []byte, empty bool) (*ir.Unit, error)

// ComputeFrames rebuilds the verification metadata of u from its ancestors
// as of the marker (see WalkAncestors). Interfaces are collected
// transitively.
func ComputeFrames(u *ir.Unit, h pass.Hierarchy, codec Codec) (*ir.Frames, error) {
	if codec == nil {
		codec = CanonicalCodec{}
	}

	ifaces := make(map[string]bool)
	for _, i := range u.Interfaces {
		ifaces[i] = true
	}

	ancestors := []string{}
	err := WalkAncestors(u, h, codec.Decode, func(anc *ir.Unit) bool {
		ancestors = append(ancestors, anc.Name)
		for _, i := range anc.Interfaces {
			ifaces[i] = true
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	interfaces := make([]string, 0, len(ifaces))
	for i := range ifaces {
		interfaces = append(interfaces, i)
	}
	slices.Sort(interfaces)

	digest, err := ir.FramesDigest(u, ancestors, interfaces)
	if err != nil {
		return nil, &UnitError{
			Code:    ErrCodeEncodeFailed,
			Unit:    u.Name,
			Message: "hashing frames",
			Err:     err,
		}
	}
	return &ir.Frames{Ancestors: ancestors, Interfaces: interfaces, Digest: digest}, nil
}

// WalkAncestors calls fn for each ancestor of u, nearest first, until fn
// returns false. A nil decode uses CanonicalCodec.
//
// Transformable ancestors are always read through ResolveUpToMarker, even
// when the host has already defined them: a defined unit carries the passes
// after the marker as well. AlreadyDefined is only consulted for units that
// never go through the pipeline, before falling back to LoadUnrelated.
//
// Fails with ErrCodeAncestorCycle if the chain loops back on itself and
// ErrCodeRelatedNotFound if an ancestor is missing.
func WalkAncestors(u *ir.Unit, h pass.Hierarchy, decode DecodeFunc, fn func(*ir.Unit) bool) error {
	if decode == nil {
		decode = CanonicalCodec{}.Decode
	}
	visited := map[string]bool{u.Name: true}
	for current := u.Super; current != ""; {
		if visited[current] {
			return &UnitError{
				Code:    ErrCodeAncestorCycle,
				Unit:    u.Name,
				Related: current,
				Message: fmt.Sprintf("ancestor chain loops at %s", current),
			}
		}
		visited[current] = true

		anc, err := ResolveAncestor(u.Name, current, h, decode)
		if err != nil {
			return err
		}
		if !fn(anc) {
			return nil
		}
		current = anc.Super
	}
	return nil
}

// ResolveAncestor returns the related unit name, seen from unit, as of the
// marker.
func ResolveAncestor(unit, name string, h pass.Hierarchy, decode DecodeFunc) (*ir.Unit, error) {
	notFound := func(err error) *UnitError {
		return &UnitError{
			Code:    ErrCodeRelatedNotFound,
			Unit:    unit,
			Related: name,
			Message: fmt.Sprintf("ancestor %s not found", name),
			Err:     err,
		}
	}

	if h == nil {
		return nil, notFound(errors.New("no hierarchy available"))
	}
	if decode == nil {
		decode = CanonicalCodec{}.Decode
	}
	if !h.Transformable(name) {
		if d, ok := h.AlreadyDefined(name); ok {
			return d, nil
		}
		anc, err := h.LoadUnrelated(name)
		if err != nil {
			return nil, relatedError(err, notFound)
		}
		return anc, nil
	}

	raw, err := h.ResolveUpToMarker(name)
	if err != nil {
		return nil, relatedError(err, notFound)
	}
	anc, err := decode(name, raw, len(raw) == 0)
	if err != nil {
		return nil, &UnitError{
			Code:    ErrCodeDecodeFailed,
			Unit:    unit,
			Related: name,
			Message: fmt.Sprintf("decoding ancestor %s", name),
			Err:     err,
		}
	}
	return anc, nil
}

// relatedError keeps typed unit errors from nested transformations and
// maps missing sources to ErrCodeRelatedNotFound.
func relatedError(err error, notFound func(error) *UnitError) error {
	var ue *UnitError
	if errors.As(err, &ue) {
		return err
	}
	if errors.Is(err, source.ErrNotFound) {
		return notFound(err)
	}
	return fmt.Errorf("resolving ancestor: %w", err)
}
