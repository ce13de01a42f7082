// Package sched implements pulse's interval-gated recurring task runner.
//
// # Overview
//
// Callers implement the Task contract (an execution interval, an Execute
// callback receiving the actual elapsed time, and registration lifecycle
// hooks) and hand tasks to a Scheduler. A scheduler owns one or more workers;
// each worker is a goroutine that continuously scans its task list, invoking
// any task whose interval has elapsed since its last execution start.
//
// # Strategies
//
// Three scheduling strategies share the Scheduler contract:
//
//   - SyncScheduler: exactly one worker. Deterministic single-goroutine
//     execution order across all registered tasks.
//   - AtomicScheduler: a fixed pool of workers with fully independent task
//     lists, assigned round-robin at registration time. A fault in one
//     worker's loop cannot affect the others' scheduling.
//   - CommunalScheduler: a pool of workers sharing one task list and one
//     timestamp map. Registration happens once instead of being broadcast;
//     workers claim due tasks under a shared lock so a task never runs more
//     often than its interval.
//
// # Timing semantics
//
// A task with interval T runs no more often than every T, but may run later
// when earlier tasks in the same pass take long to execute. The timestamp is
// seeded at registration, so the first execution happens after one full
// interval. Workers busy-spin between passes by default (strict mode, lowest
// latency); Config.IdleSleep enables a bounded pause after passes that ran
// nothing.
//
// # Failure isolation
//
// Errors and panics raised by Task.Execute are caught at the loop level,
// reported to the configured FailureSink, and never stop the worker or affect
// sibling tasks. Failing tasks are retried on their next due interval
// indefinitely; unregistering is the caller's decision.
package sched
