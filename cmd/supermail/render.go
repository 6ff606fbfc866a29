package main

import (
	"github.com/spf13/cobra"

	"github.com/shineum/supermail/internal/compose"
)

func newRenderCmd(a *app) *cobra.Command {
	var ff fieldFlags

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Print the composed RFC 5322 message without sending it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fields, err := ff.build(cmd, a.cfg.Defaults.From)
			if err != nil {
				return err
			}
			_, err = compose.Compose(fields).WriteTo(cmd.OutOrStdout())
			return err
		},
	}

	ff.register(cmd)
	return cmd
}
