package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/concilia-dev/concilia/internal/id"
	"github.com/concilia-dev/concilia/internal/model"
)

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status <session-id>",
		Short: "Show a session's counters and lifecycle state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svcs, err := openServices(cmd)
			if err != nil {
				return err
			}

			sess, err := svcs.manager.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			printSession(sess)
			return nil
		},
	}
}

func newSessionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List import sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svcs, err := openServices(cmd)
			if err != nil {
				return err
			}

			sessions, err := svcs.manager.List(cmd.Context())
			if err != nil {
				return err
			}

			for _, s := range sessions {
				fmt.Printf("%s %s %-11s %d lines, %.0f%% resolved\n",
					id.Short(s.ID), s.AccountID, s.Status, s.Counters.Total, s.Progress()*100)
			}
			return nil
		},
	}
}

func newFinalizeCommand() *cobra.Command {
	var actor string

	cmd := &cobra.Command{
		Use:   "finalize <session-id>",
		Short: "Close the import batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svcs, err := openServices(cmd)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			sess, err := svcs.manager.Finalize(ctx, args[0], actor)
			if err != nil {
				return err
			}

			if err := svcs.saveAndCommit(ctx, "finalize: session "+id.Short(sess.ID)); err != nil {
				return err
			}

			fmt.Printf("Session %s finalized by %s\n", id.Short(sess.ID), actor)
			return nil
		},
	}

	cmd.Flags().StringVar(&actor, "by", "", "finalizing user (required)")
	_ = cmd.MarkFlagRequired("by")

	return cmd
}

func newCancelCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <session-id>",
		Short: "Cancel an in-progress session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svcs, err := openServices(cmd)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			sess, err := svcs.manager.Cancel(ctx, args[0])
			if err != nil {
				return err
			}

			if err := svcs.saveAndCommit(ctx, "cancel: session "+id.Short(sess.ID)); err != nil {
				return err
			}

			fmt.Printf("Session %s cancelled\n", id.Short(sess.ID))
			return nil
		},
	}
}

func printSession(s *model.ImportSession) {
	fmt.Printf("Session:  %s\n", s.ID)
	fmt.Printf("Account:  %s (%s)\n", s.AccountID, s.SourceFormat)
	fmt.Printf("Status:   %s", s.Status)
	if s.ErrorMessage != "" {
		fmt.Printf(" (%s)", s.ErrorMessage)
	}
	fmt.Println()
	c := s.Counters
	fmt.Printf("Lines:    %d total / %d pending / %d suggested / %d conciliated / %d discarded\n",
		c.Total, c.Pending, c.Suggested, c.Conciliated, c.Discarded)
	fmt.Printf("Progress: %.0f%%\n", s.Progress()*100)
}
