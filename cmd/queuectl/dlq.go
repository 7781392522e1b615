package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KarthikHK-01/queuectl/engine"
)

func dlqCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dlq",
		Short: "Inspect and retry jobs in the dead letter queue",
	}

	var limit, offset int
	list := &cobra.Command{
		Use:   "list",
		Short: "List dead jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withEngine(cmd.Context(), func(eng *engine.Engine) error {
				jobs, err := eng.ListDeadJobs(cmd.Context(), limit, offset)
				if err != nil {
					return err
				}
				if len(jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No jobs found in the DLQ")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), "Dead letter queue:\n\n")
				printJobs(cmd.OutOrStdout(), jobs)
				return nil
			})
		},
	}
	list.Flags().IntVar(&limit, "limit", engine.DefaultListLimit, "maximum number of jobs to print")
	list.Flags().IntVar(&offset, "offset", 0, "number of jobs to skip")

	retry := &cobra.Command{
		Use:   "retry <job-id>",
		Short: "Move one dead job back to pending with attempts reset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEngine(cmd.Context(), func(eng *engine.Engine) error {
				j, err := eng.RetryDeadJob(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("retry %s: %w", args[0], err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Job %s requeued\n", j.ID)
				return nil
			})
		},
	}

	retryAll := &cobra.Command{
		Use:   "retry-all",
		Short: "Move every dead job back to pending",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withEngine(cmd.Context(), func(eng *engine.Engine) error {
				n, err := eng.RetryAllDeadJobs(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Requeued %d job(s)\n", n)
				return nil
			})
		},
	}

	cmd.AddCommand(list, retry, retryAll)
	return cmd
}
