// Package cli implements the h3c command line tool.
package cli

import (
	"fmt"
	"runtime"
	"slices"

	"github.com/spf13/cobra"

	"github.com/mohammed-shakir/h3-columnar/pkg/h3array"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format      string // "text" | "json"
	Parallelism int
	MaxCells    int64
}

var ValidFormats = []string{"text", "json"}

func (o *RootOptions) engine() *h3array.Engine {
	return h3array.New(h3array.WithParallelism(o.Parallelism), h3array.WithMaxCells(o.MaxCells))
}

// NewRootCommand creates the root command for h3c.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "h3c",
		Short: "h3c runs vectorized H3 operations over Arrow data",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if opts.Parallelism < 1 {
				return fmt.Errorf("parallelism must be at least 1, got %d", opts.Parallelism)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format for printed tables (text|json)")
	cmd.PersistentFlags().IntVarP(&opts.Parallelism, "parallelism", "p", runtime.GOMAXPROCS(0), "worker goroutines per op")
	cmd.PersistentFlags().Int64Var(&opts.MaxCells, "max-cells", h3array.DefaultMaxCells, "largest output in cells or pixels a single op may produce")

	cmd.AddCommand(NewOpsCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewParseCommand(opts))
	cmd.AddCommand(NewDiskCommand(opts))

	return cmd
}
