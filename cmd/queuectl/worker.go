package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/KarthikHK-01/queuectl"
	"github.com/KarthikHK-01/queuectl/engine"
)

func workerCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Start and stop worker processes",
	}
	cmd.AddCommand(workerStartCmd(a), workerStopCmd(a))
	return cmd
}

func workerStartCmd(a *app) *cobra.Command {
	var (
		count   int
		detach  bool
		logFile string
	)
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Run workers until SIGINT or SIGTERM",
		Long: `Run workers in this process until SIGINT or SIGTERM.

On a signal the workers stop claiming, let in-flight commands finish
(bounded by worker.shutdown_timeout), and exit. The process records its
PID in the PID file so "queuectl worker stop" can reach it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if count == 0 {
				count = a.cfg.Worker.Count
			}
			if count < 1 {
				return fmt.Errorf("%w: --count must be positive, got %d", queuectl.ErrInvalidConfig, count)
			}
			if detach {
				return a.startDetached(cmd, logFile)
			}
			return a.runWorkers(cmd, count)
		},
	}
	cmd.Flags().IntVar(&count, "count", 0, "number of workers (default worker.count from config)")
	cmd.Flags().BoolVar(&detach, "detach", false, "run the workers in a background process")
	cmd.Flags().StringVar(&logFile, "log-file", "queuectl-worker.log", "log destination for --detach")
	return cmd
}

// runWorkers runs a pool in the foreground until a signal or a fatal
// store error.
func (a *app) runWorkers(cmd *cobra.Command, count int) error {
	sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return a.withEngine(cmd.Context(), func(eng *engine.Engine) error {
		// The pool gets the unsignalled context; shutdown goes through Stop
		// so that shutdown_timeout applies.
		pool, err := eng.StartWorkers(cmd.Context(), count)
		if err != nil {
			return err
		}

		pid := os.Getpid()
		if err := addPID(a.cfg.PIDFile, pid); err != nil {
			a.logger.Warn("failed to record pid", slog.String("error", err.Error()))
		}
		defer func() {
			if err := removePID(a.cfg.PIDFile, pid); err != nil {
				a.logger.Warn("failed to remove pid", slog.String("error", err.Error()))
			}
		}()

		fmt.Fprintf(cmd.OutOrStdout(), "Started %d worker(s), pid %d. Press Ctrl+C to stop.\n", count, pid)

		waitErr := make(chan error, 1)
		go func() { waitErr <- pool.Wait() }()

		select {
		case err := <-waitErr:
			// Every worker returned without a signal: a fatal store error.
			return err
		case <-sigCtx.Done():
		}

		a.logger.Info("shutdown signal received, finishing in-flight jobs",
			slog.Duration("shutdown_timeout", a.cfg.Worker.ShutdownTimeout),
		)
		stopCtx := context.Background()
		if a.cfg.Worker.ShutdownTimeout > 0 {
			var cancel context.CancelFunc
			stopCtx, cancel = context.WithTimeout(stopCtx, a.cfg.Worker.ShutdownTimeout)
			defer cancel()
		}
		if err := pool.Stop(stopCtx); err != nil {
			return err
		}
		return <-waitErr
	})
}

// startDetached re-executes this command without --detach in a new
// session, with output appended to logFile.
func (a *app) startDetached(cmd *cobra.Command, logFile string) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	child := exec.Command(exe, withoutDetach(os.Args[1:])...)
	child.Stdout = f
	child.Stderr = f
	child.SysProcAttr = detachedAttr()
	if err := child.Start(); err != nil {
		return fmt.Errorf("start background worker: %w", err)
	}
	pid := child.Process.Pid
	_ = child.Process.Release()

	fmt.Fprintf(cmd.OutOrStdout(), "Workers started in background, pid %d, logging to %s\n", pid, logFile)
	return nil
}

// withoutDetach drops every form of the --detach flag from args.
func withoutDetach(args []string) []string {
	out := make([]string, 0, len(args))
	for _, arg := range args {
		if arg == "--detach" || strings.HasPrefix(arg, "--detach=") {
			continue
		}
		out = append(out, arg)
	}
	return out
}

func workerStopCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Ask every recorded worker process to shut down",
		Long: `Send SIGTERM to every PID in the PID file and remove the file.

Workers finish their in-flight jobs before exiting; stop does not wait
for them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pids, err := clearPIDs(a.cfg.PIDFile)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(pids) == 0 {
				fmt.Fprintln(out, "No active workers found")
				return nil
			}

			fmt.Fprintf(out, "Stopping %d worker process(es)\n", len(pids))
			for _, pid := range pids {
				if err := signalTerm(pid); err != nil {
					a.logger.Warn("could not signal worker",
						slog.Int("pid", pid),
						slog.String("error", err.Error()),
					)
					continue
				}
				fmt.Fprintf(out, "Sent SIGTERM to pid %d\n", pid)
			}
			return nil
		},
	}
}

func signalTerm(pid int) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	if err := p.Signal(syscall.SIGTERM); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			return errors.New("process already exited")
		}
		return err
	}
	return nil
}
