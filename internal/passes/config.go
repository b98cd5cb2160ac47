package passes

import (
	"strings"

	"github.com/roach88/weaver/internal/pass"
	"github.com/roach88/weaver/internal/provider"
)

// Source attributes loading issues to the built-in provider.
const Source = "github.com/roach88/weaver/internal/passes"

// Config selects the units each built-in pass touches.
//
// Unit patterns ending in "/" match every unit under that package;
// anything else matches one unit exactly.
type Config struct {
	// Access lists units whose members are widened to public.
	Access []string

	// Interfaces maps a unit to the interfaces injected into it.
	Interfaces map[string][]string

	// Trace lists units to trace.
	Trace []string

	// TraceInherited also traces units with an ancestor carrying the
	// attribute trace=true, as of the marker.
	TraceInherited bool
}

// matchAny reports whether name matches one of patterns.
func matchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if strings.HasSuffix(p, "/") {
			if strings.HasPrefix(name, p) {
				return true
			}
		} else if p == name {
			return true
		}
	}
	return false
}

// New returns the built-in passes configured by cfg.
func New(cfg Config) []pass.Pass {
	return []pass.Pass{
		NewAccessWidener(cfg.Access),
		NewInterfaceInjector(cfg.Interfaces),
		NewMethodTracer(cfg.Trace, cfg.TraceInherited),
	}
}

// Provider returns a provider for the built-in passes.
func Provider(cfg Config) provider.Provider {
	return provider.Static{Src: Source, Passes: New(cfg)}
}
