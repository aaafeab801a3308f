// Package task implements the background job layer: a bounded broker queue,
// a registry binding task names to handlers and retry policies, a worker pool
// driving the execution state machine with retry/backoff, a cron scheduler for
// periodic invocations, and a result store queried by the status API.
package task
