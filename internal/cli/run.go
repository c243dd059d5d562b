package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mohammed-shakir/h3-columnar/internal/core/arrowipc"
	"github.com/mohammed-shakir/h3-columnar/internal/ops"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	In       string
	Out      string
	Params   []string
	FileIPC  bool
	PrintOut bool
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <op>",
		Short: "Run one operation over an Arrow IPC input",
		Long: `Run one operation over an Arrow IPC stream or file.

Example:
  h3c run grid_disk --in cells.arrows --out disks.arrow --file --param k=2`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOp(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.In, "in", "-", "input Arrow IPC path, - for stdin")
	cmd.Flags().StringVar(&opts.Out, "out", "-", "output path, - for stdout")
	cmd.Flags().StringArrayVar(&opts.Params, "param", nil, "op parameter as name=value (repeatable)")
	cmd.Flags().BoolVar(&opts.FileIPC, "file", false, "write the Arrow IPC file format instead of a stream")
	cmd.Flags().BoolVar(&opts.PrintOut, "print", false, "print the result as a table instead of Arrow IPC")

	return cmd
}

func parseParams(kvs []string) (ops.Params, error) {
	p := ops.Params{}
	for _, kv := range kvs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid --param %q: want name=value", kv)
		}
		p[strings.TrimSpace(k)] = v
	}
	return p, nil
}

func runOp(cmd *cobra.Command, opts *RunOptions, name string) error {
	params, err := parseParams(opts.Params)
	if err != nil {
		return err
	}

	var data []byte
	if opts.In == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(opts.In)
	}
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	e := opts.engine()
	in, err := arrowipc.Decode(data, e.Allocator())
	if err != nil {
		return err
	}
	if in != nil {
		defer in.Release()
	}

	out, err := ops.Run(cmd.Context(), e, name, in, params)
	if err != nil {
		return err
	}
	defer out.Release()

	w := cmd.OutOrStdout()
	if opts.Out != "-" {
		f, err := os.Create(opts.Out)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}
	switch {
	case opts.PrintOut:
		return printRecord(w, out, opts.Format)
	case opts.FileIPC:
		return arrowipc.WriteFile(w, out, e.Allocator())
	default:
		return arrowipc.WriteStream(w, out, e.Allocator())
	}
}
