// Package engine wires every queuectl subsystem together and provides the
// application-level API the CLI is written against.
//
// The engine package exists to break an import cycle: the worker, dlq and
// settings packages each depend on the job package and the store
// interfaces, and the CLI needs all of them at once. Engine sits above
// every subsystem and below the command layer.
//
// # Building an Engine
//
//	s := sqlite.New("queuectl.db")
//	if err := s.Migrate(ctx); err != nil { ... }
//
//	eng, err := engine.New(s,
//	    engine.WithLogger(logger),
//	    engine.WithExtension(audithook.New(audithook.SlogRecorder(logger))),
//	    engine.WithWorkerConfig(cfg.Worker),
//	)
//
// # Enqueuing Jobs
//
//	eng.Enqueue(ctx, "echo hello")
//
//	// With options
//	eng.Enqueue(ctx, "make report",
//	    job.WithID("nightly-report"),
//	    job.WithMaxRetries(5),
//	    job.WithRunAt(time.Now().Add(10*time.Minute)),
//	)
//	eng.Enqueue(ctx, "backup.sh", job.WithSchedule("0 3 * * *"))
//
// # Running Workers
//
//	pool, err := eng.StartWorkers(ctx, 4)
//	...
//	pool.Stop(shutdownCtx) // soft stop: in-flight commands finish
//
// Retry delays follow base-backoff^attempts seconds, where base-backoff is
// read from the durable config store when the workers are built.
//
// # Options
//
//   - [WithExtension] registers a lifecycle extension
//   - [WithMiddleware] adds a middleware after the default chain
//   - [WithRunner] replaces the sh -c command runner
//   - [WithWorkerConfig] sets poll, heartbeat, timeout and rate settings
//   - [WithTracerProvider] sets the OpenTelemetry tracer provider
//   - [WithMeterProvider] sets the OpenTelemetry meter provider
package engine
