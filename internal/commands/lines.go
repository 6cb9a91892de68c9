package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/concilia-dev/concilia/internal/model"
	"github.com/concilia-dev/concilia/internal/store"
)

func newLinesCommand() *cobra.Command {
	var state string
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "lines <session-id>",
		Short: "List a session's statement lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svcs, err := openServices(cmd)
			if err != nil {
				return err
			}

			filter := store.LineFilter{}
			if state != "" {
				filter.State = model.LineState(strings.ToUpper(state))
			}

			page, err := svcs.project.Store.ListLines(cmd.Context(), args[0], filter, store.PageRequest{Limit: limit, Offset: offset})
			if err != nil {
				return err
			}

			for _, l := range page.Lines {
				printLine(l)
			}
			fmt.Printf("%d of %d lines\n", len(page.Lines), page.Total)
			return nil
		},
	}

	cmd.Flags().StringVar(&state, "state", "", "filter by state: pendiente, sugerido, conciliado, descartado")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum lines to show")
	cmd.Flags().IntVar(&offset, "offset", 0, "lines to skip")

	return cmd
}

func printLine(l model.StatementLine) {
	detail := ""
	switch {
	case l.Proposal != nil:
		detail = fmt.Sprintf(" -> %s (%d/100)", l.Proposal.MovementID, l.Proposal.Score)
	case l.DiscardReason != "":
		detail = " [" + l.DiscardReason + "]"
	}
	fmt.Printf("#%d %s %s %s %-10s %s%s\n",
		l.LineNumber, l.ID, l.Date.Format("2006-01-02"),
		l.Amount.StringFixed(2), l.State, l.Description, detail)
}
