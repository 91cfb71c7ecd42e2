package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDeviceCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "device",
		Short:   "Inspect or reset the device identity",
		GroupID: groupDevice,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "id",
		Short: "Print the device ID, creating it on first use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.open(cmd.Context()); err != nil {
				return err
			}
			id, err := e.identity.GetOrCreateDeviceID(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the stored identity record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.open(cmd.Context()); err != nil {
				return err
			}
			identity, err := e.identity.Identity(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), identity)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Delete the device identity; a new one is created on next use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.open(cmd.Context()); err != nil {
				return err
			}
			if err := e.identity.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "device identity cleared")
			return nil
		},
	})

	return cmd
}
