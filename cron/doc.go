// Package cron computes run times from cron expressions.
//
// queuectl has no recurring jobs: a job enqueued with a schedule runs once,
// at the next time the expression fires after enqueue. The engine stores
// that instant as the job's run_at, so claiming needs no cron logic.
//
// Expressions use the standard 5-field syntax ("0 9 * * 1-5") or a
// descriptor such as "@hourly" or "@every 30s".
package cron
