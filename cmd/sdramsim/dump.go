package main

import (
	"fmt"
	"io"
	"os"

	"github.com/bradleyjkemp/memviz"
	"github.com/spf13/cobra"
)

func newDumpCmd() *cobra.Command {
	cfg := config{NumAccess: 1 << 30}

	var (
		cycles uint64
		out    string
	)

	dumpCmd := &cobra.Command{
		Use:   "dump",
		Short: "Run for some cycles and dump the controller registers.",
		Long: `Dump runs the memory tester for the given number of cycles and ` +
			`writes the controller registers as a Graphviz graph.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg.MaxCycles = cycles
			if err := cfg.validate(); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()

				w = f
			}

			return dump(cfg, w)
		},
	}

	addCommonFlags(dumpCmd, &cfg)

	flags := dumpCmd.Flags()
	flags.Uint64Var(&cycles, "cycles", 20000, "Number of cycles to run")
	flags.StringVar(&out, "out", "", "Output file, stdout if empty")

	return dumpCmd
}

func dump(cfg config, w io.Writer) error {
	if cfg.MaxCycles == 0 {
		return fmt.Errorf("cycles must be positive")
	}

	tb, err := buildTestbench(cfg, os.Stderr)
	if err != nil {
		return err
	}

	tb.comp.Start()

	if err := tb.engine.Run(); err != nil {
		return err
	}

	status := tb.comp.Status()
	memviz.Map(w, &status)

	return nil
}
