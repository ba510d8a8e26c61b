package main

import (
	"fmt"
	"strconv"

	"github.com/kiranshivaraju/vslpipeline/internal/store"
	"github.com/kiranshivaraju/vslpipeline/pkg/models"
	"github.com/spf13/cobra"
)

func newURLsCommand(cc *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "urls",
		Short: "Register and inspect source URLs",
	}
	cmd.AddCommand(newURLsAddCommand(cc))
	cmd.AddCommand(newURLsShowCommand(cc))
	cmd.AddCommand(newURLsListCommand(cc))
	return cmd
}

func newURLsAddCommand(cc *commandContext) *cobra.Command {
	var (
		source  string
		urlType string
		now     bool
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "add <url>...",
		Short: "Register URLs for the next batch, or start one right away with --now",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if now && len(args) != 1 {
				return fmt.Errorf("--now takes exactly one url, got %d", len(args))
			}

			return cc.withServices(cmd.Context(), func(svc *services) error {
				if now {
					res, err := svc.intake.Submit(cmd.Context(), args[0], urlType)
					if err != nil {
						return err
					}
					if asJSON {
						return writeJSON(out, res)
					}
					if !res.Created {
						fmt.Fprintf(out, "URL %d already registered (%s)\n", res.URL.ID, res.URL.Status)
						return nil
					}
					fmt.Fprintf(out, "URL %d queued, pipeline task %s\n", res.URL.ID, res.TaskID)
					return nil
				}

				res, err := svc.intake.SubmitBulk(cmd.Context(), source, args)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(out, res)
				}
				rows := make([][]string, 0, len(res.Items))
				for _, it := range res.Items {
					rows = append(rows, []string{itoa(it.URLID), truncate(it.RawURL, 60), strconv.FormatBool(it.Created), it.Reason})
				}
				fmt.Fprintln(out, renderTable([]string{"ID", "URL", "Created", "Reason"}, rows, 0))
				fmt.Fprintf(out, "%d received, %d inserted, %d duplicates (source %s)\n",
					res.TotalReceived, res.Inserted, res.Duplicates, res.Source)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "Label recorded for this submission")
	cmd.Flags().StringVar(&urlType, "type", "", "Source type for --now (default m3u8)")
	cmd.Flags().BoolVar(&now, "now", false, "Start the pipeline immediately instead of waiting for a batch")
	cmd.Flags().BoolVar(&asJSON, "json", false, "JSON output")
	return cmd
}

func newURLsShowCommand(cc *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a URL and every job recorded for it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id < 1 {
				return fmt.Errorf("invalid url id %q", args[0])
			}
			out := cmd.OutOrStdout()

			return cc.withServices(cmd.Context(), func(svc *services) error {
				u, err := svc.store.GetURL(cmd.Context(), id)
				if err != nil {
					return fmt.Errorf("url %d: %w", id, err)
				}
				jobs, err := svc.store.ListJobsForURL(cmd.Context(), id)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(out, map[string]any{"url": u, "jobs": jobs})
				}

				fmt.Fprintf(out, "URL %d  %s\n", u.ID, u.RawURL)
				fmt.Fprintf(out, "Status:  %s\n", u.Status)
				fmt.Fprintf(out, "Retries: download=%d transcription=%d categorization=%d\n",
					u.RetryCountDownload, u.RetryCountTranscription, u.RetryCountCategorization)
				if u.LastError != nil {
					fmt.Fprintf(out, "Last error: %s\n", *u.LastError)
				}

				rows := make([][]string, 0, len(jobs))
				for _, j := range jobs {
					rows = append(rows, []string{
						itoa(j.ID), string(j.JobType), fmt.Sprintf("%s %d", j.ResourceType, j.ResourceID),
						string(j.Status), strconv.Itoa(j.Retries), formatTime(j.StartedAt), formatTime(j.FinishedAt),
						truncate(deref(j.ErrorMessage), 50),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Job", "Stage", "Resource", "Status", "Retries", "Started", "Finished", "Error"}, rows, 0, 4))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "JSON output")
	return cmd
}

func newURLsListCommand(cc *commandContext) *cobra.Command {
	var (
		status string
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List URLs, optionally by status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := store.URLFilter{Status: models.URLStatus(status), Limit: limit}
			if status != "" && !filter.Status.Valid() {
				return fmt.Errorf("unknown status %q", status)
			}
			out := cmd.OutOrStdout()

			return cc.withServices(cmd.Context(), func(svc *services) error {
				urls, err := svc.store.ListURLs(cmd.Context(), filter)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(out, urls)
				}
				rows := make([][]string, 0, len(urls))
				for _, u := range urls {
					rows = append(rows, []string{itoa(u.ID), truncate(u.RawURL, 60), string(u.Status), truncate(deref(u.LastError), 40)})
				}
				fmt.Fprintln(out, renderTable([]string{"ID", "URL", "Status", "Last error"}, rows, 0))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (pending_ingest|queued|...|categorized)")
	cmd.Flags().IntVar(&limit, "limit", 50, "Max rows")
	cmd.Flags().BoolVar(&asJSON, "json", false, "JSON output")
	return cmd
}
