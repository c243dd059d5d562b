package cli

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/spf13/cobra"

	"github.com/mohammed-shakir/h3-columnar/internal/ops"
	"github.com/mohammed-shakir/h3-columnar/pkg/h3array"
)

// NewParseCommand prints index, resolution and center of each given cell.
func NewParseCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "parse <cell>...",
		Short:        "Describe H3 cells given as hex strings",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			e := rootOpts.engine()
			cells, err := parseArgs(cmd.Context(), e, args)
			if err != nil {
				return err
			}
			defer cells.Release()

			res, err := ops.Run(cmd.Context(), e, "cells_resolution", cells, nil)
			if err != nil {
				return err
			}
			defer res.Release()
			coords, err := ops.Run(cmd.Context(), e, "cells_to_coordinates", cells, nil)
			if err != nil {
				return err
			}
			defer coords.Release()

			names := []string{h3array.ColString, h3array.ColCell, h3array.ColResolution, h3array.ColLat, h3array.ColLng}
			cols := []arrow.Array{
				stringColumn(e, args), cells.Column(0), res.Column(0), coords.Column(0), coords.Column(1),
			}
			defer cols[0].Release()
			table := h3array.NewTable(names, cols)
			defer table.Release()
			return printRecord(cmd.OutOrStdout(), table, rootOpts.Format)
		},
	}
}

// DiskOptions holds flags for the disk command.
type DiskOptions struct {
	*RootOptions
	K int
}

// NewDiskCommand prints the grid disk around one cell.
func NewDiskCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DiskOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:          "disk <cell>",
		Short:        "Print the cells within k grid steps of a cell",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			e := opts.engine()
			cells, err := parseArgs(cmd.Context(), e, args)
			if err != nil {
				return err
			}
			defer cells.Release()
			p := ops.Params{"k": fmt.Sprint(opts.K), "flatten": "true"}
			disk, err := ops.Run(cmd.Context(), e, "grid_disk_distances", cells, p)
			if err != nil {
				return err
			}
			defer disk.Release()
			return printRecord(cmd.OutOrStdout(), disk, opts.Format)
		},
	}
	cmd.Flags().IntVarP(&opts.K, "k", "k", 1, "grid distance")
	return cmd
}

func stringColumn(e *h3array.Engine, vals []string) arrow.Array {
	b := array.NewStringBuilder(e.Allocator())
	defer b.Release()
	b.AppendValues(vals, nil)
	return b.NewArray()
}

func parseArgs(ctx context.Context, e *h3array.Engine, args []string) (arrow.Record, error) {
	strs := stringColumn(e, args)
	defer strs.Release()
	in := h3array.NewTable([]string{h3array.ColString}, []arrow.Array{strs})
	defer in.Release()
	return ops.Run(ctx, e, "cells_parse", in, nil)
}
