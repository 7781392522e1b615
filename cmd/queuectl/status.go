package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/KarthikHK-01/queuectl/engine"
	"github.com/KarthikHK-01/queuectl/job"
)

func statusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the number of jobs in each state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withEngine(cmd.Context(), func(eng *engine.Engine) error {
				counts, err := eng.StatusCounts(cmd.Context())
				if err != nil {
					return err
				}
				printCounts(cmd.OutOrStdout(), counts)
				return nil
			})
		},
	}
}

func listCmd(a *app) *cobra.Command {
	var (
		state  string
		limit  int
		offset int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs in a given state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := job.ParseState(state)
			if err != nil {
				return err
			}
			return a.withEngine(cmd.Context(), func(eng *engine.Engine) error {
				jobs, err := eng.ListJobs(cmd.Context(), st, limit, offset)
				if err != nil {
					return err
				}
				if len(jobs) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "No jobs found in state %s\n", st)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Jobs in state %s:\n\n", st)
				printJobs(cmd.OutOrStdout(), jobs)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&state, "state", "", "job state: pending, processing, completed, failed or dead")
	cmd.Flags().IntVar(&limit, "limit", engine.DefaultListLimit, "maximum number of jobs to print")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of jobs to skip")
	_ = cmd.MarkFlagRequired("state")
	return cmd
}

// printCounts writes one padded line per state in lifecycle order.
func printCounts(w io.Writer, counts map[job.State]int64) {
	for _, st := range job.States {
		fmt.Fprintf(w, "%-10s : %d\n", st, counts[st])
	}
}

func printJobs(w io.Writer, jobs []*job.Job) {
	for _, j := range jobs {
		fmt.Fprintf(w, "Job ID: %s\n", j.ID)
		fmt.Fprintf(w, "   Command:    %s\n", j.Command)
		fmt.Fprintf(w, "   Attempts:   %d/%d\n", j.Attempts, j.MaxRetries)
		if j.State == job.StatePending && j.Attempts > 0 {
			fmt.Fprintf(w, "   Next Run:   %s\n", j.RunAt.Format(time.RFC3339))
		}
		if j.LastError != "" {
			fmt.Fprintf(w, "   Last Error: %s\n", j.LastError)
		}
		fmt.Fprintf(w, "   Created At: %s\n", j.CreatedAt.Format(time.RFC3339))
		fmt.Fprintf(w, "   Updated At: %s\n", j.UpdatedAt.Format(time.RFC3339))
		fmt.Fprintln(w, "----------------------------------------------------------------")
	}
}
