package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/KarthikHK-01/queuectl"
	"github.com/KarthikHK-01/queuectl/engine"
	"github.com/KarthikHK-01/queuectl/job"
)

// enqueueRequest is the JSON accepted by "queuectl enqueue".
type enqueueRequest struct {
	ID         string     `json:"id"`
	Command    string     `json:"command"`
	MaxRetries *int       `json:"max_retries"`
	RunAt      *time.Time `json:"run_at"`
	Schedule   string     `json:"schedule"`
}

// parseEnqueueRequest decodes raw strictly and converts it to enqueue options.
func parseEnqueueRequest(raw string) (string, []job.Option, error) {
	var req enqueueRequest
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return "", nil, fmt.Errorf("%w: invalid job JSON: %v", queuectl.ErrInvalidJob, err)
	}
	if req.Command == "" {
		return "", nil, fmt.Errorf("%w: command is required", queuectl.ErrInvalidJob)
	}

	var opts []job.Option
	if req.ID != "" {
		opts = append(opts, job.WithID(req.ID))
	}
	if req.MaxRetries != nil {
		opts = append(opts, job.WithMaxRetries(*req.MaxRetries))
	}
	if req.RunAt != nil {
		opts = append(opts, job.WithRunAt(*req.RunAt))
	}
	if req.Schedule != "" {
		opts = append(opts, job.WithSchedule(req.Schedule))
	}
	return req.Command, opts, nil
}

func enqueueCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "enqueue <job-json>",
		Short: "Add a job to the queue",
		Long: `Add a job to the queue. The argument is a JSON object:

  {"id": "job1", "command": "echo hi", "max_retries": 3,
   "run_at": "2026-01-02T15:04:05Z", "schedule": "0 3 * * *"}

Only "command" is required. Without "max_retries" the max_retries config
key applies. "run_at" (RFC 3339) and "schedule" (cron) delay the first run
and are mutually exclusive.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			command, opts, err := parseEnqueueRequest(args[0])
			if err != nil {
				return err
			}
			return a.withEngine(cmd.Context(), func(eng *engine.Engine) error {
				j, err := eng.Enqueue(cmd.Context(), command, opts...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Job enqueued: %s\n", j.ID)
				return nil
			})
		},
	}
}
