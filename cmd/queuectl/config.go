package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KarthikHK-01/queuectl/engine"
)

func configCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read and write durable queue settings",
		Long: `Read and write the durable key/value settings shared by every worker.

The engine interprets two keys:
  base-backoff   base of the retry delay, base^attempts seconds (default 2)
  max_retries    retry ceiling for jobs enqueued without one (default 3)

Workers read base-backoff when they start.`,
	}

	get := &cobra.Command{
		Use:   "get [key]",
		Short: "Print one setting, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEngine(cmd.Context(), func(eng *engine.Engine) error {
				if len(args) == 1 {
					v, err := eng.GetConfig(cmd.Context(), args[0])
					if err != nil {
						return fmt.Errorf("config %s: %w", args[0], err)
					}
					fmt.Fprintln(cmd.OutOrStdout(), v)
					return nil
				}

				entries, err := eng.ListConfig(cmd.Context())
				if err != nil {
					return err
				}
				for _, e := range entries {
					fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", e.Key, e.Value)
				}
				return nil
			})
		},
	}

	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEngine(cmd.Context(), func(eng *engine.Engine) error {
				if err := eng.SetConfig(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", args[0], args[1])
				return nil
			})
		},
	}

	del := &cobra.Command{
		Use:   "delete <key>",
		Short: "Remove a setting so its default applies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEngine(cmd.Context(), func(eng *engine.Engine) error {
				if err := eng.DeleteConfig(cmd.Context(), args[0]); err != nil {
					return fmt.Errorf("config %s: %w", args[0], err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s deleted\n", args[0])
				return nil
			})
		},
	}

	cmd.AddCommand(get, set, del)
	return cmd
}
