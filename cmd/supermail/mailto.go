package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shineum/supermail/internal/mailto"
)

func newMailtoCmd(a *app) *cobra.Command {
	var ff fieldFlags

	cmd := &cobra.Command{
		Use:   "mailto",
		Short: "Print a mailto: link for the given fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// The default sender is not applied; a link is opened by the
			// reader's own mail client.
			fields, err := ff.build(cmd, "")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), mailto.FromFields(fields))
			return err
		},
	}

	ff.register(cmd)
	return cmd
}
