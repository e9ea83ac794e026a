package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sarchlab/sdramsim/datarecording"
	"github.com/sarchlab/sdramsim/sdram"
)

// recordedCommand holds the columns of the command table that the report
// reads. Other columns are skipped by the reader.
type recordedCommand struct {
	Cycle   uint64
	Command string
	Bank    uint8
	Addr    uint16
}

func newReportCmd() *cobra.Command {
	var last int

	reportCmd := &cobra.Command{
		Use:   "report FILE",
		Short: "Summarize the commands recorded by run --record.",
		Long: `Report reads a SQLite file written by "run --record" and ` +
			`prints how many commands of each kind were issued, followed ` +
			`by the last few commands.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); err != nil {
				return err
			}

			reader := datarecording.NewReader(args[0])
			defer reader.Close()

			return report(cmd.Context(), reader, last, cmd.OutOrStdout())
		},
	}

	reportCmd.Flags().IntVar(&last, "last", 10,
		"Number of most recent commands to list")

	return reportCmd
}

func report(
	ctx context.Context,
	reader datarecording.DataReader,
	last int,
	out io.Writer,
) error {
	if ctx == nil {
		ctx = context.Background()
	}

	reader.MapTable(sdram.CommandTableName, recordedCommand{})

	for kind := sdram.CommandKind(1); kind < sdram.NumCmdKind; kind++ {
		_, count, err := reader.Query(ctx, sdram.CommandTableName,
			datarecording.QueryParams{
				Where: "Command = ?",
				Args:  []any{kind.String()},
				Limit: 1,
			})
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "%s: %d\n", kind, count)
	}

	if last <= 0 {
		return nil
	}

	rows, _, err := reader.Query(ctx, sdram.CommandTableName,
		datarecording.QueryParams{OrderBy: "Cycle DESC", Limit: last})
	if err != nil {
		return err
	}

	for i := len(rows) - 1; i >= 0; i-- {
		c := rows[i].(*recordedCommand)
		fmt.Fprintf(out, "%d, %s, bank %d, addr 0x%04x\n",
			c.Cycle, c.Command, c.Bank, c.Addr)
	}

	return nil
}
