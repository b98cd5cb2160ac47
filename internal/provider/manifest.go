package provider

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"golang.org/x/mod/semver"

	"github.com/roach88/weaver/internal/ir"
	"github.com/roach88/weaver/internal/pass"
)

// ManifestExt is the manifest file extension.
const ManifestExt = ".cue"

// manifestSchema closes the manifest shape so unknown fields are errors.
const manifestSchema = `
#Action: {
	op:      "add_flag" | "add_interface" | "set_attr" | "append_insn"
	value:   string
	key?:    string
	method?: string
}

#Pass: {
	runs_before?: [...string]
	runs_after?:  [...string]
	hint?:        "earliest" | "early" | "default" | "late" | "latest"
	match?: {
		prefixes?: [...string]
		units?:    [...string]
		empty?:    bool
	}
	actions: [...#Action]
}

#Manifest: {
	requires?: string
	pass?: [string]: #Pass
}
`

// ManifestError is a defect in one manifest, with its CUE position when
// known.
type ManifestError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *ManifestError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError keeps the first CUE error with its position.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &ManifestError{Field: "cue", Message: err.Error()}
	}
	first := errs[0]
	me := &ManifestError{Field: "cue", Message: first.Error()}
	if positions := errors.Positions(first); len(positions) > 0 {
		me.Pos = positions[0]
	}
	return me
}

type manifestFile struct {
	Requires string              `json:"requires"`
	Pass     map[string]passSpec `json:"pass"`
}

type passSpec struct {
	RunsBefore []string  `json:"runs_before"`
	RunsAfter  *[]string `json:"runs_after"`
	Hint       string    `json:"hint"`
	Match      Match     `json:"match"`
	Actions    []Action  `json:"actions"`
}

// Manifest is the provider for one CUE manifest file. The namespace of
// its passes is the file name without extension.
type Manifest struct {
	Path string
}

// Source implements Provider.
func (m Manifest) Source() string { return m.Path }

// Namespace returns the pass namespace.
func (m Manifest) Namespace() string {
	return strings.TrimSuffix(filepath.Base(m.Path), ManifestExt)
}

// Produce parses and validates the manifest, then collects its passes in
// label order. Nothing is collected if any part is invalid.
func (m Manifest) Produce(collect func(pass.Pass)) error {
	data, err := os.ReadFile(m.Path)
	if err != nil {
		return fmt.Errorf("reading manifest: %w", err)
	}
	passes, err := ParseManifest(m.Path, m.Namespace(), data)
	if err != nil {
		return err
	}
	for _, p := range passes {
		collect(p)
	}
	return nil
}

// ParseManifest compiles manifest source into declarative passes.
func ParseManifest(filename, namespace string, data []byte) ([]*Declarative, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(manifestSchema, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("manifest schema: %w", err)
	}

	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	v = schema.LookupPath(cue.ParsePath("#Manifest")).Unify(v)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	var file manifestFile
	if err := v.Decode(&file); err != nil {
		return nil, formatCUEError(err)
	}

	if err := checkRequires(file.Requires, v.LookupPath(cue.ParsePath("requires")).Pos()); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(file.Pass))
	for id := range file.Pass {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	passes := make([]*Declarative, 0, len(ids))
	for _, id := range ids {
		pos := v.LookupPath(cue.MakePath(cue.Str("pass"), cue.Str(id))).Pos()
		p, err := buildPass(namespace, id, file.Pass[id], pos)
		if err != nil {
			return nil, err
		}
		passes = append(passes, p)
	}
	return passes, nil
}

func checkRequires(requires string, pos token.Pos) error {
	if requires == "" {
		return nil
	}
	if !semver.IsValid(requires) {
		return &ManifestError{Field: "requires", Message: fmt.Sprintf("%q is not a semantic version", requires), Pos: pos}
	}
	if semver.Compare(ir.Version, requires) < 0 {
		return &ManifestError{
			Field:   "requires",
			Message: fmt.Sprintf("manifest requires weaver %s, running %s", requires, ir.Version),
			Pos:     pos,
		}
	}
	return nil
}

func buildPass(namespace, id string, spec passSpec, pos token.Pos) (*Declarative, error) {
	field := "pass." + id
	name, err := ir.ParseName(namespace + ":" + id)
	if err != nil {
		return nil, &ManifestError{Field: field, Message: err.Error(), Pos: pos}
	}
	hint, err := pass.ParseHint(spec.Hint)
	if err != nil {
		return nil, &ManifestError{Field: field + ".hint", Message: err.Error(), Pos: pos}
	}
	for i, a := range spec.Actions {
		if a.Op == OpSetAttr && a.Key == "" {
			return nil, &ManifestError{Field: fmt.Sprintf("%s.actions[%d]", field, i), Message: "set_attr requires key", Pos: pos}
		}
	}

	d := &Declarative{
		name:    name,
		before:  toNames(spec.RunsBefore),
		after:   []ir.Name{pass.MarkerName},
		hint:    hint,
		match:   spec.Match,
		actions: spec.Actions,
	}
	if spec.RunsAfter != nil {
		d.after = toNames(*spec.RunsAfter)
	}
	return d, nil
}

func toNames(ss []string) []ir.Name {
	out := make([]ir.Name, len(ss))
	for i, s := range ss {
		out[i] = ir.Name(s)
	}
	return out
}

// FindManifests returns one provider per manifest file in dir, sorted by
// path. A missing directory yields no providers.
func FindManifests(dir string) ([]Provider, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading manifest directory: %w", err)
	}
	var out []Provider
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ManifestExt {
			continue
		}
		out = append(out, Manifest{Path: filepath.Join(dir, e.Name())})
	}
	return out, nil
}
