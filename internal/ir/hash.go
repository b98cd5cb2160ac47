package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed digests.
// Version suffix enables future algorithm migration.
const (
	DomainFrames = "weaver/frames/v1"
	DomainUnit   = "weaver/unit/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// FramesDigest hashes the inputs of verification metadata: the ancestor
// chain, the transitive interface set and every method body.
func FramesDigest(u *Unit, ancestors, interfaces []string) (string, error) {
	bodies := make(map[string][]string, len(u.Methods))
	for _, m := range u.Methods {
		key := m.Name + m.Sig
		bodies[key] = append([]string{}, m.Body...)
	}
	canonical, err := MarshalCanonical(map[string]any{
		"unit":       u.Name,
		"ancestors":  ancestors,
		"interfaces": interfaces,
		"bodies":     bodies,
	})
	if err != nil {
		return "", fmt.Errorf("FramesDigest: %w", err)
	}
	return hashWithDomain(DomainFrames, canonical), nil
}

// UnitHash is the content address of encoded unit bytes.
func UnitHash(data []byte) string {
	return hashWithDomain(DomainUnit, data)
}
