package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/concilia-dev/concilia/internal/id"
)

func newMatchCommand() *cobra.Command {
	var marginDays int

	cmd := &cobra.Command{
		Use:   "match <session-id>",
		Short: "Run automatic matching over the session's pending lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svcs, err := openServices(cmd)
			if err != nil {
				return err
			}
			if marginDays > 0 {
				svcs.engine.SetMarginDays(marginDays)
			}

			ctx := cmd.Context()
			suggested, err := svcs.engine.RunBatch(ctx, args[0])
			if err != nil {
				return err
			}

			if err := svcs.saveAndCommit(ctx, "match: session "+id.Short(args[0])); err != nil {
				return err
			}

			if len(suggested) == 0 {
				fmt.Println("No new suggestions")
				return nil
			}
			for _, l := range suggested {
				fmt.Printf("#%d %s %s %s -> %s (%d/100)\n",
					l.LineNumber, l.Date.Format("2006-01-02"), l.Direction,
					l.Amount.StringFixed(2), l.Proposal.MovementID, l.Proposal.Score)
			}
			fmt.Printf("%d lines suggested\n", len(suggested))
			return nil
		},
	}

	cmd.Flags().IntVar(&marginDays, "margin-days", 0, "override the candidate date window")

	return cmd
}
