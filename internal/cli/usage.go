package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newUsageCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "usage",
		Short:   "Inspect or change the monthly prompt counter",
		GroupID: groupDevice,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print this month's usage record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.open(cmd.Context()); err != nil {
				return err
			}
			state, err := e.session.Boot(cmd.Context(), "")
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), state.Usage)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "increment",
		Short: "Count one prompt and print the new monthly total",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.open(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), e.session.RecordPrompt(cmd.Context()))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Set this month's prompt count to zero",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.open(cmd.Context()); err != nil {
				return err
			}
			id, err := e.identity.GetOrCreateDeviceID(cmd.Context())
			if err != nil {
				return err
			}
			return e.usage.ResetMonthlyCount(cmd.Context(), id)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete all usage records, legacy counters and migration markers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.open(cmd.Context()); err != nil {
				return err
			}
			n, err := e.usage.ClearAll(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d keys\n", n)
			return nil
		},
	})

	return cmd
}

func newMigrateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "migrate <legacy-user-id>",
		Short:   "Move a legacy anonymous counter onto this device",
		GroupID: groupDevice,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.open(cmd.Context()); err != nil {
				return err
			}
			state, err := e.session.Boot(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if state.MigrationErr != nil {
				return state.MigrationErr
			}
			if state.Migrated {
				fmt.Fprintf(cmd.OutOrStdout(), "migrated %s: count=%d\n", args[0], state.Usage.MonthlyPromptCount)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "nothing to migrate for %s: count=%d\n", args[0], state.Usage.MonthlyPromptCount)
			}
			return nil
		},
	}
}
