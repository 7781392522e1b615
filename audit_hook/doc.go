// Package audithook is a queuectl extension that turns lifecycle events
// into structured audit records.
//
// Every job lifecycle hook emits an [AuditEvent] through the [Recorder]
// interface. The extension assigns a severity (info for normal operations,
// warning for retries and reclaims, critical for dead-lettering) and
// metadata such as the command, attempt count, and elapsed time.
//
// # Logging audit events
//
// [SlogRecorder] writes each event as a structured log line, which is how
// the queuectl CLI wires it:
//
//	audithook.New(audithook.SlogRecorder(logger))
//
// # Selective filtering
//
//	audithook.New(recorder,
//	    audithook.WithActions(
//	        audithook.ActionJobDead,
//	        audithook.ActionJobRetried,
//	    ),
//	)
package audithook
