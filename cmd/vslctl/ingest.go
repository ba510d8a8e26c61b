package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newIngestCommand(cc *commandContext) *cobra.Command {
	var batchSize int

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Enqueue a batch pass over pending URLs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var size *int
			if cmd.Flags().Changed("batch-size") {
				size = &batchSize
			}
			return cc.withServices(cmd.Context(), func(svc *services) error {
				id, n, err := svc.scheduler.Trigger(cmd.Context(), size)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Ingest batch of %d enqueued, task %s\n", n, id)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "URLs to claim (default DEFAULT_BATCH_SIZE)")
	return cmd
}

func newResubmitCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resubmit [url-id...]",
		Short: "Move failed or stalled URLs back to pending_ingest; named ids are moved whenever unfinished",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, a := range args {
				id, err := strconv.ParseInt(a, 10, 64)
				if err != nil || id < 1 {
					return fmt.Errorf("invalid url id %q", a)
				}
				ids = append(ids, id)
			}
			return cc.withServices(cmd.Context(), func(svc *services) error {
				n, err := svc.scheduler.Resubmit(cmd.Context(), ids...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d URL(s) resubmitted\n", n)
				return nil
			})
		},
	}
}
