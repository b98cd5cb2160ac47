// Package ir provides the unit tree and value types shared by every weaver
// package.
//
// This package contains type definitions and the canonical codec only. All
// other internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Unit bytes are canonical JSON (sorted keys, NFC strings, no floats)
//   - Encoding the same tree twice yields byte-identical output
//   - All JSON and YAML tags use snake_case
package ir
