package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/weaver/internal/ir"
	"github.com/roach88/weaver/internal/source"
	"github.com/roach88/weaver/internal/store"
)

// TransformOptions holds flags for the transform command.
type TransformOptions struct {
	*RootOptions
	Out string // output directory; empty writes unit bytes to stdout
	DB  string // audit database; overrides the configuration
	All bool   // transform every unit in the source roots

	runIDs store.RunIDGenerator
}

// UnitView is the result of loading one unit.
type UnitView struct {
	Unit     string    `json:"unit"`
	Outcome  string    `json:"outcome,omitempty"`
	Selected []ir.Name `json:"selected,omitempty"`
	Hash     string    `json:"hash,omitempty"`
	Path     string    `json:"path,omitempty"`
	Error    string    `json:"error,omitempty"`
	Report   string    `json:"-"`
}

// TransformResult is the output of the transform command.
type TransformResult struct {
	Units  []UnitView  `json:"units"`
	Issues []IssueView `json:"issues,omitempty"`
	Failed int         `json:"failed"`
}

// String renders one audit block per unit.
func (r TransformResult) String() string {
	var b strings.Builder
	for _, u := range r.Units {
		if u.Error != "" {
			fmt.Fprintf(&b, "✗ %s: %s\n", u.Unit, u.Error)
		} else {
			fmt.Fprintf(&b, "✓ %s (%s)\n", u.Unit, u.Outcome)
		}
		for _, line := range strings.Split(strings.TrimRight(u.Report, "\n"), "\n") {
			fmt.Fprintf(&b, "  %s\n", line)
		}
	}
	fmt.Fprintf(&b, "\n%d unit(s), %d failed\n", len(r.Units), r.Failed)
	return b.String()
}

// NewTransformCommand creates the transform command.
func NewTransformCommand(rootOpts *RootOptions) *cobra.Command {
	return newTransformCommand(rootOpts, store.UUIDv7Generator{})
}

func newTransformCommand(rootOpts *RootOptions, ids store.RunIDGenerator) *cobra.Command {
	opts := &TransformOptions{RootOptions: rootOpts, runIDs: ids}

	cmd := &cobra.Command{
		Use:   "transform [unit...]",
		Short: "Transform units through the pass pipeline",
		Long: `Load units from the source roots through the full pass pipeline.

Each unit's audit trail is printed. With --out the transformed bytes are
written under that directory; otherwise they go to stdout and the report
goes to stderr. With --db (or database in the configuration) the run is
persisted for the audit command.

Exit codes:
  0 - All units transformed
  1 - One or more units failed
  2 - Command error (configuration, pass graph, database)

Examples:
  weaver transform com/ex/Main
  weaver transform --all --out build/units --db audit.db`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransform(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "output directory")
	cmd.Flags().StringVar(&opts.DB, "db", "", "audit database path")
	cmd.Flags().BoolVar(&opts.All, "all", false, "transform every unit in the source roots")

	return cmd
}

func runTransform(opts *TransformOptions, args []string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	if len(args) == 0 && !opts.All {
		return f.Fail(ExitCommandError, ErrCodeGeneric, "no units given (name units or use --all)", nil)
	}

	ws, err := opts.openWorkspace(cmd, f)
	if err != nil {
		return err
	}

	units := args
	if opts.All {
		units, err = ws.src.Names()
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeNotFound, "listing source units", err)
		}
	}

	st, err := openStore(opts.DB, ws.cfg, f)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
	}

	result := TransformResult{Units: make([]UnitView, 0, len(units)), Issues: issueViews(ws)}
	stdoutBytes := opts.Out == "" && opts.Format != "json"
	for _, name := range units {
		view, data := transformUnit(ws, name)
		switch {
		case view.Error != "":
			result.Failed++
		case opts.Out != "":
			view.Path, err = writeUnit(opts.Out, name, data)
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing %s", name), err)
			}
		case stdoutBytes:
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", data)
		}
		result.Units = append(result.Units, view)
	}

	runID := ""
	if st != nil {
		runID = opts.runIDs.Generate()
		if err := persistRun(cmd.Context(), st, runID, ws, result); err != nil {
			return f.Fail(ExitCommandError, ErrCodeStore, "persisting run", err)
		}
	}

	if stdoutBytes {
		f.Writer = cmd.ErrOrStderr()
	}
	if err := f.SuccessWithRun(result, runID); err != nil {
		return err
	}
	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d unit(s) failed", result.Failed))
	}
	return nil
}

// transformUnit defines name and returns its view and defined bytes.
func transformUnit(ws *workspace, name string) (UnitView, []byte) {
	view := UnitView{Unit: name}
	var data []byte
	d, err := ws.session.Loader.Define(name)
	if err != nil {
		view.Error = err.Error()
	} else {
		view.Outcome = d.Outcome.String()
		view.Selected = d.Selected
		view.Hash = ir.UnitHash(d.Bytes)
		data = d.Bytes
	}
	view.Report = ws.session.Trail().Report(name)
	return view, data
}

// writeUnit writes data as the unit file of name under dir.
func writeUnit(dir, name string, data []byte) (string, error) {
	path := filepath.Join(dir, filepath.FromSlash(source.UnitPath(name)))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// persistRun stores the run record, loading issues, unit results and the
// audit trail.
func persistRun(ctx context.Context, st *store.Store, runID string, ws *workspace, result TransformResult) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := st.WriteRun(ctx, store.NewRun(runID, ws.session.Graph.Names())); err != nil {
		return err
	}
	if err := st.WriteIssues(ctx, runID, ws.session.Issues); err != nil {
		return err
	}
	for _, u := range result.Units {
		r := store.UnitResult{Unit: u.Unit, Hash: u.Hash, Error: u.Error}
		if u.Outcome != "" {
			outcome, err := ir.ParseOutcome(u.Outcome)
			if err != nil {
				return err
			}
			r.Outcome = outcome
		}
		if err := st.WriteUnitResult(ctx, runID, r); err != nil {
			return err
		}
	}
	return st.WriteTrail(ctx, runID, ws.session.Trail())
}
