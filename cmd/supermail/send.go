package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shineum/supermail/internal/deliver"
	"github.com/shineum/supermail/internal/transport/stdout"
)

// drainTimeout bounds how long send --later waits for the queue.
const drainTimeout = 2 * time.Minute

func newSendCmd(a *app) *cobra.Command {
	var (
		ff    fieldFlags
		later bool
		raw   bool
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Compose a message and deliver it through the configured transport",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fields, err := ff.build(cmd, a.cfg.Defaults.From)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			tr, err := selectTransport(ctx, a.cfg, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if st, ok := tr.(*stdout.Transport); ok {
				st.Raw = raw
			} else if raw {
				return fmt.Errorf("--raw needs the stdout transport, not %s", tr.Name())
			}

			// Workers have exited before Close returns, so jobErr is
			// safe to read afterwards.
			var jobErr error
			d, err := deliver.New(deliver.Config{
				Transport:       tr,
				Workers:         a.cfg.Queue.Workers,
				QueueSize:       a.cfg.Queue.Size,
				MessageIDDomain: a.cfg.Defaults.MessageIDDomain,
				OnResult: func(r deliver.Result) {
					if r.Err != nil {
						jobErr = fmt.Errorf("job %s: %w", r.JobID, r.Err)
					}
				},
			})
			if err != nil {
				return err
			}

			if !later {
				defer d.Close(context.Background())
				msg, err := d.DeliverNow(ctx, fields)
				if err != nil {
					return err
				}
				if msg.MessageID != "" {
					fmt.Fprintln(cmd.ErrOrStderr(), msg.MessageID)
				}
				return nil
			}

			id, err := d.DeliverLater(ctx, fields)
			if err != nil {
				d.Close(context.Background())
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), id)

			drainCtx, cancel := context.WithTimeout(ctx, drainTimeout)
			defer cancel()
			if err := d.Close(drainCtx); err != nil {
				return fmt.Errorf("job %s did not finish: %w", id, err)
			}
			return jobErr
		},
	}

	ff.register(cmd)
	cmd.Flags().BoolVar(&later, "later", false, "queue the message on the background worker pool, then wait for it")
	cmd.Flags().BoolVar(&raw, "raw", false, "print the rendered MIME message instead of a summary (stdout transport only)")
	return cmd
}
