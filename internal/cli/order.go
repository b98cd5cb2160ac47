package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/weaver/internal/ir"
	"github.com/roach88/weaver/internal/pass"
)

// OrderEntry is one pass in the frozen order.
type OrderEntry struct {
	Position  int     `json:"position"`
	Name      ir.Name `json:"name"`
	Hint      string  `json:"hint"`
	Marker    bool    `json:"marker,omitempty"`
	Recompute bool    `json:"recompute"`
}

// IssueView is a provider loading issue.
type IssueView struct {
	Source  string `json:"source"`
	Message string `json:"message"`
}

// OrderResult is the output of the order command.
type OrderResult struct {
	Passes []OrderEntry `json:"passes"`
	Issues []IssueView  `json:"issues,omitempty"`
}

// String renders the order for text output. A '*' marks passes that may
// request metadata recomputation.
func (r OrderResult) String() string {
	var b strings.Builder
	for _, e := range r.Passes {
		mark := " "
		if e.Recompute {
			mark = "*"
		}
		suffix := ""
		if e.Marker {
			suffix = " (marker)"
		}
		fmt.Fprintf(&b, "%3d %s %s [%s]%s\n", e.Position, mark, e.Name, e.Hint, suffix)
	}
	if len(r.Issues) > 0 {
		fmt.Fprintf(&b, "\nLoading issues:\n")
		for _, is := range r.Issues {
			fmt.Fprintf(&b, "  %s: %s\n", is.Source, is.Message)
		}
	}
	return b.String()
}

// NewOrderCommand creates the order command.
func NewOrderCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "order",
		Short: "Print the pass execution order",
		Long: `Discover passes, build the pass graph and print the execution order.

Passes marked '*' are ordered after the metadata marker and may request
metadata recomputation. Provider failures are listed as loading issues and
do not fail the command.

Exit codes:
  0 - Graph built
  2 - Invalid configuration or pass graph`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			ws, err := rootOpts.openWorkspace(cmd, f)
			if err != nil {
				return err
			}
			return f.Success(buildOrderResult(ws))
		},
	}
}

func buildOrderResult(ws *workspace) OrderResult {
	g := ws.session.Graph
	res := OrderResult{Passes: make([]OrderEntry, 0, g.Len())}
	for i, p := range g.Order() {
		res.Passes = append(res.Passes, OrderEntry{
			Position:  i + 1,
			Name:      p.Name(),
			Hint:      p.Hint().String(),
			Marker:    pass.IsMarker(p),
			Recompute: g.CanRecompute(p.Name()),
		})
	}
	res.Issues = issueViews(ws)
	return res
}

func issueViews(ws *workspace) []IssueView {
	var out []IssueView
	for _, is := range ws.session.Issues {
		msg := ""
		if is.Err != nil {
			msg = is.Err.Error()
		}
		out = append(out, IssueView{Source: is.Source, Message: msg})
	}
	return out
}
