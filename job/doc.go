// Package job defines the job entity, its state machine, enqueue options,
// and the store interface every backend implements.
//
// # Job Entity
//
// A [Job] is a shell command plus retry bookkeeping. It progresses
// through a small state machine:
//
//	pending → processing → completed
//	pending → processing → pending (retry, RunAt deferred)
//	pending → processing → dead
//	dead → pending (manual DLQ retry)
//
// Fields of note:
//   - Command: opaque string executed by a worker; never rewritten by the engine
//   - Attempts / MaxRetries: retry budget; a failure that pushes Attempts
//     above MaxRetries dead-letters the job
//   - RunAt: earliest time the job may be claimed
//
// # Claiming
//
// [Store.ClaimJob] is the only way a job enters [StateProcessing]. Every
// backend implements it as a single atomic step so that concurrent
// workers, in one process or many, never receive the same job.
package job
