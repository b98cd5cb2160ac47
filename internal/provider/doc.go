// Package provider gathers passes from providers.
//
// A provider is anything that can produce zero or more passes: the
// built-in Go passes, or a CUE manifest file declaring passes. Discover
// calls every provider in turn. A provider that fails, by error or by
// panic, contributes no passes and is reported as an Issue attributed to
// its source; the remaining providers still run.
package provider
