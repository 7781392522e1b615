// Command queuectl is a CLI for a durable, single-node background job
// queue. Jobs are shell commands; workers claim them from a shared store,
// retry failures with exponential backoff, and move exhausted jobs to a
// dead letter queue.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
