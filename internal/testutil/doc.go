// Package testutil provides deterministic helpers for tests across
// packages: configurable passes, a map-backed hierarchy and fixed run IDs.
package testutil
