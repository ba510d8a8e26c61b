package main

import (
	"encoding/json"
	"fmt"

	"github.com/kiranshivaraju/vslpipeline/internal/store"
	"github.com/kiranshivaraju/vslpipeline/pkg/models"
	"github.com/spf13/cobra"
)

func newDLQCommand(cc *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dlq",
		Short: "Inspect the dead letter queue",
	}
	cmd.AddCommand(newDLQListCommand(cc))
	return cmd
}

func newDLQListCommand(cc *commandContext) *cobra.Command {
	var (
		stage  string
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List dead letters, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := store.DeadLetterFilter{Stage: models.Stage(stage), Limit: limit}
			if stage != "" && !filter.Stage.Valid() {
				return fmt.Errorf("unknown stage %q: must be download, transcription or categorization", stage)
			}
			out := cmd.OutOrStdout()

			return cc.withServices(cmd.Context(), func(svc *services) error {
				items, err := svc.store.ListDeadLetters(cmd.Context(), filter)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(out, items)
				}
				rows := make([][]string, 0, len(items))
				for _, d := range items {
					payload, _ := json.Marshal(d.ErrorPayload)
					rows = append(rows, []string{
						itoa(d.ID), string(d.Stage), fmt.Sprintf("%s %d", d.ResourceType, d.ResourceID),
						deref(d.Reason), formatTime(&d.CreatedAt), truncate(string(payload), 60),
					})
				}
				fmt.Fprintln(out, renderTable([]string{"ID", "Stage", "Resource", "Reason", "At", "Payload"}, rows, 0))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&stage, "stage", "", "Filter by stage")
	cmd.Flags().IntVar(&limit, "limit", 50, "Max rows")
	cmd.Flags().BoolVar(&asJSON, "json", false, "JSON output")
	return cmd
}
