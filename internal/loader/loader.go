package loader

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/roach88/weaver/internal/ir"
	"github.com/roach88/weaver/internal/pass"
	"github.com/roach88/weaver/internal/source"
	"github.com/roach88/weaver/internal/transform"
)

// Definition is a loaded unit.
type Definition struct {
	Name     string
	Unit     *ir.Unit
	Bytes    []byte
	Outcome  ir.Outcome
	Selected []ir.Name
}

// Loader defines units from a source through a runner.
type Loader struct {
	src      source.Lookup
	runner   *transform.Runner
	platform []string
	logger   *slog.Logger

	locks     sync.Map // string -> *sync.Mutex
	defined   sync.Map // string -> *Definition
	partials  sync.Map // string -> []byte
	unrelated sync.Map // string -> *ir.Unit
}

// Option configures a Loader.
type Option func(*Loader)

// WithPlatform marks unit-name prefixes that are never transformed.
func WithPlatform(prefixes ...string) Option {
	return func(l *Loader) {
		l.platform = append(l.platform, prefixes...)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// New creates a loader.
func New(src source.Lookup, runner *transform.Runner, opts ...Option) *Loader {
	l := &Loader{
		src:    src,
		runner: runner,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Hierarchy returns the loader's view of other units, for linking.
func (l *Loader) Hierarchy() pass.Hierarchy {
	return hierarchy{l: l}
}

// Runner returns the runner.
func (l *Loader) Runner() *transform.Runner {
	return l.runner
}

// Transformable reports whether name goes through the pipeline.
func (l *Loader) Transformable(name string) bool {
	for _, p := range l.platform {
		if strings.HasPrefix(name, p) {
			return false
		}
	}
	return true
}

func (l *Loader) lockFor(name string) *sync.Mutex {
	mu, _ := l.locks.LoadOrStore(name, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Load defines name and returns its unit.
func (l *Loader) Load(name string) (*ir.Unit, error) {
	d, err := l.Define(name)
	if err != nil {
		return nil, err
	}
	return d.Unit, nil
}

// Define loads name through the full pipeline, once. Later calls return
// the recorded definition.
func (l *Loader) Define(name string) (*Definition, error) {
	if d, ok := l.defined.Load(name); ok {
		return d.(*Definition), nil
	}

	mu := l.lockFor(name)
	mu.Lock()
	defer mu.Unlock()

	if d, ok := l.defined.Load(name); ok {
		return d.(*Definition), nil
	}

	raw, err := l.src.Fetch(name)
	if err != nil {
		if errors.Is(err, source.ErrNotFound) {
			return nil, &LoadError{Code: ErrCodeUnitNotFound, Unit: name, Message: "unit not found", Err: err}
		}
		return nil, &LoadError{Code: ErrCodeFetchFailed, Unit: name, Message: "fetching unit", Err: err}
	}

	d := &Definition{Name: name, Bytes: raw, Outcome: ir.NoChange}
	if l.Transformable(name) {
		res, err := l.runner.Transform(transform.Request{
			Unit:      name,
			Raw:       raw,
			Empty:     len(raw) == 0,
			Hierarchy: hierarchy{l: l, chain: []string{name}},
		})
		if err != nil {
			code := ErrCodeTransformFailed
			if transform.IsRelatedNotFound(err) {
				code = ErrCodeRelatedNotFound
			}
			le := &LoadError{Code: code, Unit: name, Message: "transforming unit", Err: err}
			var ue *transform.UnitError
			if errors.As(err, &ue) {
				le.Related = ue.Related
			}
			return nil, le
		}
		d.Bytes, d.Outcome, d.Selected = res.Bytes, res.Outcome, res.Selected
	}

	d.Unit, err = l.runner.Codec().Decode(name, d.Bytes, len(d.Bytes) == 0)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeDecodeFailed, Unit: name, Message: "decoding defined unit", Err: err}
	}

	l.defined.Store(name, d)
	l.logger.Info("unit defined", "unit", name, "outcome", d.Outcome, "passes", len(d.Selected))
	return d, nil
}

// Defined returns the names of every defined unit, sorted.
func (l *Loader) Defined() []string {
	var out []string
	l.defined.Range(func(k, _ any) bool {
		out = append(out, k.(string))
		return true
	})
	slices.Sort(out)
	return out
}

// hierarchy is the pass.Hierarchy bound to one call chain. The chain is
// copied on every recursion so sibling lookups never see each other.
type hierarchy struct {
	l     *Loader
	chain []string
}

func (h hierarchy) AlreadyDefined(name string) (*ir.Unit, bool) {
	d, ok := h.l.defined.Load(name)
	if !ok {
		return nil, false
	}
	return d.(*Definition).Unit, true
}

func (h hierarchy) Transformable(name string) bool {
	return h.l.Transformable(name)
}

func (h hierarchy) LoadUnrelated(name string) (*ir.Unit, error) {
	if u, ok := h.l.unrelated.Load(name); ok {
		return u.(*ir.Unit), nil
	}
	raw, err := h.fetchRelated(name)
	if err != nil {
		return nil, err
	}
	u, err := h.l.runner.Codec().Decode(name, raw, len(raw) == 0)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeDecodeFailed, Unit: h.current(), Related: name, Message: "decoding related unit", Err: err}
	}
	actual, _ := h.l.unrelated.LoadOrStore(name, u)
	return actual.(*ir.Unit), nil
}

func (h hierarchy) ResolveUpToMarker(name string) ([]byte, error) {
	if slices.Contains(h.chain, name) {
		return nil, &LoadError{
			Code:    ErrCodeResolutionCycle,
			Unit:    h.current(),
			Related: name,
			Message: fmt.Sprintf("resolution chain %s re-enters %s", strings.Join(h.chain, " → "), name),
		}
	}
	if data, ok := h.l.partials.Load(name); ok {
		return data.([]byte), nil
	}
	if !h.l.Transformable(name) {
		u, err := h.LoadUnrelated(name)
		if err != nil {
			return nil, err
		}
		return h.l.runner.Codec().Encode(u)
	}

	raw, err := h.fetchRelated(name)
	if err != nil {
		return nil, err
	}
	res, err := h.l.runner.Transform(transform.Request{
		Unit:       name,
		Raw:        raw,
		Empty:      len(raw) == 0,
		StopBefore: h.l.runner.StopAtMarker(),
		Hierarchy:  hierarchy{l: h.l, chain: append(slices.Clone(h.chain), name)},
	})
	if err != nil {
		return nil, err
	}
	actual, _ := h.l.partials.LoadOrStore(name, res.Bytes)
	h.l.logger.Debug("unit resolved up to marker", "unit", name, "for", h.current())
	return actual.([]byte), nil
}

func (h hierarchy) current() string {
	if len(h.chain) == 0 {
		return ""
	}
	return h.chain[len(h.chain)-1]
}

func (h hierarchy) fetchRelated(name string) ([]byte, error) {
	raw, err := h.l.src.Fetch(name)
	if err == nil {
		return raw, nil
	}
	if errors.Is(err, source.ErrNotFound) {
		return nil, &LoadError{Code: ErrCodeRelatedNotFound, Unit: h.current(), Related: name, Message: "related unit not found", Err: err}
	}
	return nil, &LoadError{Code: ErrCodeFetchFailed, Unit: h.current(), Related: name, Message: "fetching related unit", Err: err}
}
