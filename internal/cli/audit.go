package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/weaver/internal/audit"
	"github.com/roach88/weaver/internal/ir"
	"github.com/roach88/weaver/internal/store"
)

// AuditOptions holds flags for the audit command.
type AuditOptions struct {
	*RootOptions
	DB    string // audit database; overrides the configuration
	RunID string // run to read; empty reads the latest
}

// UnitAudit is the persisted trail of one unit.
type UnitAudit struct {
	Unit    string        `json:"unit"`
	Entries []audit.Entry `json:"entries"`
	Outcome string        `json:"outcome,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// AuditResult is the output of the audit command.
type AuditResult struct {
	RunID         string      `json:"run_id"`
	WeaverVersion string      `json:"weaver_version"`
	PassOrder     []ir.Name   `json:"pass_order"`
	Units         []UnitAudit `json:"units"`
	Issues        []IssueView `json:"issues,omitempty"`
}

// String renders one report block per unit.
func (r AuditResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s (weaver %s)\n", r.RunID, r.WeaverVersion)
	for _, u := range r.Units {
		b.WriteString("\n")
		b.WriteString(audit.FormatReport(u.Unit, u.Entries))
		if u.Error != "" {
			fmt.Fprintf(&b, "  error: %s\n", u.Error)
		} else if u.Outcome != "" {
			fmt.Fprintf(&b, "  outcome: %s\n", u.Outcome)
		}
	}
	if len(r.Issues) > 0 {
		fmt.Fprintf(&b, "\nLoading issues:\n")
		for _, is := range r.Issues {
			fmt.Fprintf(&b, "  %s: %s\n", is.Source, is.Message)
		}
	}
	return b.String()
}

// NewAuditCommand creates the audit command.
func NewAuditCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AuditOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "audit [unit...]",
		Short: "Show the persisted audit trail of a run",
		Long: `Read a run persisted by 'weaver transform --db' and print, for each unit,
which passes were asked and which applied.

Without units every unit of the run is shown. Without --run the latest run
is read.

Exit codes:
  0 - Audit printed
  2 - Command error (no database, run not found)

Examples:
  weaver audit --db audit.db
  weaver audit com/ex/Main --db audit.db --run 0190a...`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAudit(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "audit database path")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run ID (default latest)")

	return cmd
}

func runAudit(opts *AuditOptions, units []string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	cfg, err := opts.loadConfig()
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeConfig, "invalid configuration", err)
	}
	st, err := openStore(opts.DB, cfg, f)
	if err != nil {
		return err
	}
	if st == nil {
		return f.Fail(ExitCommandError, ErrCodeStore, "no database (use --db or set database in the configuration)", nil)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	result, err := readAudit(ctx, st, opts.RunID, units)
	if err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			return f.Fail(ExitCommandError, ErrCodeNotFound, "run not found", err)
		}
		return f.Fail(ExitCommandError, ErrCodeStore, "reading audit", err)
	}
	return f.Success(result)
}

func readAudit(ctx context.Context, st *store.Store, runID string, units []string) (AuditResult, error) {
	var (
		run store.Run
		err error
	)
	if runID == "" {
		run, err = st.LatestRun(ctx)
	} else {
		run, err = st.ReadRun(ctx, runID)
	}
	if err != nil {
		return AuditResult{}, err
	}

	if len(units) == 0 {
		if units, err = st.AuditUnits(ctx, run.ID); err != nil {
			return AuditResult{}, err
		}
	}

	results, err := st.ReadUnitResults(ctx, run.ID)
	if err != nil {
		return AuditResult{}, err
	}
	byUnit := make(map[string]store.UnitResult, len(results))
	for _, r := range results {
		byUnit[r.Unit] = r
	}

	out := AuditResult{
		RunID:         run.ID,
		WeaverVersion: run.WeaverVersion,
		PassOrder:     run.PassOrder,
		Units:         make([]UnitAudit, 0, len(units)),
	}
	for _, u := range units {
		entries, err := st.ReadAudit(ctx, run.ID, u)
		if err != nil {
			return AuditResult{}, err
		}
		ua := UnitAudit{Unit: u, Entries: entries}
		if r, ok := byUnit[u]; ok {
			ua.Error = r.Error
			if r.Error == "" {
				ua.Outcome = r.Outcome.String()
			}
		}
		out.Units = append(out.Units, ua)
	}

	issues, err := st.ReadIssues(ctx, run.ID)
	if err != nil {
		return AuditResult{}, err
	}
	for _, is := range issues {
		out.Issues = append(out.Issues, IssueView{Source: is.Source, Message: is.Message})
	}
	return out, nil
}
