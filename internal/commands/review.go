package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/concilia-dev/concilia/internal/id"
)

func newApproveCommand() *cobra.Command {
	var actor string

	cmd := &cobra.Command{
		Use:   "approve <line-id>",
		Short: "Approve a suggested match, claiming the ledger movement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svcs, err := openServices(cmd)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			line, err := svcs.workflow.Approve(ctx, args[0], actor)
			if err != nil {
				return err
			}

			if err := svcs.saveAndCommit(ctx, "approve: line "+id.Short(line.ID)); err != nil {
				return err
			}

			fmt.Printf("Line #%d conciliated against %s\n", line.LineNumber, line.Proposal.MovementID)
			return nil
		},
	}

	cmd.Flags().StringVar(&actor, "by", "", "approving user (required)")
	_ = cmd.MarkFlagRequired("by")

	return cmd
}

func newRejectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reject <line-id>",
		Short: "Reject a suggested match, returning the line to pending",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svcs, err := openServices(cmd)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			line, err := svcs.workflow.Reject(ctx, args[0])
			if err != nil {
				return err
			}

			if err := svcs.saveAndCommit(ctx, "reject: line "+id.Short(line.ID)); err != nil {
				return err
			}

			fmt.Printf("Line #%d back to %s\n", line.LineNumber, line.State)
			return nil
		},
	}
}

func newManualCommand() *cobra.Command {
	var actor string

	cmd := &cobra.Command{
		Use:   "manual <line-id> <movement-id>",
		Short: "Reconcile a line against an explicitly chosen movement",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svcs, err := openServices(cmd)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			line, err := svcs.workflow.ReconcileManually(ctx, args[0], args[1], actor)
			if err != nil {
				return err
			}

			if err := svcs.saveAndCommit(ctx, "manual: line "+id.Short(line.ID)); err != nil {
				return err
			}

			fmt.Printf("Line #%d manually conciliated against %s\n", line.LineNumber, args[1])
			return nil
		},
	}

	cmd.Flags().StringVar(&actor, "by", "", "reconciling user (required)")
	_ = cmd.MarkFlagRequired("by")

	return cmd
}

func newDiscardCommand() *cobra.Command {
	var actor string
	var reason string

	cmd := &cobra.Command{
		Use:   "discard <line-id>",
		Short: "Exclude a line from reconciliation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svcs, err := openServices(cmd)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			line, err := svcs.workflow.Discard(ctx, args[0], reason, actor)
			if err != nil {
				return err
			}

			if err := svcs.saveAndCommit(ctx, "discard: line "+id.Short(line.ID)); err != nil {
				return err
			}

			fmt.Printf("Line #%d discarded: %s\n", line.LineNumber, reason)
			return nil
		},
	}

	cmd.Flags().StringVar(&actor, "by", "", "discarding user (required)")
	_ = cmd.MarkFlagRequired("by")
	cmd.Flags().StringVar(&reason, "reason", "", "discard reason (required)")
	_ = cmd.MarkFlagRequired("reason")

	return cmd
}
