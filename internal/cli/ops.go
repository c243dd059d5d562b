package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mohammed-shakir/h3-columnar/internal/ops"
)

// NewOpsCommand lists the registered ops.
func NewOpsCommand(_ *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "ops",
		Short:        "List available operations",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "OP\tINPUTS\tDESCRIPTION")
			for _, op := range ops.List() {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", op.Name, strings.Join(op.Inputs, ","), op.Doc)
			}
			return tw.Flush()
		},
	}
}
