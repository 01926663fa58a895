// Package initsys is the core of the init-system, providing the supervisor
// that a device runs as its first user-space process and the individual steps
// it is built from.
//
// # Mechanism of Operation
//
// The supervisor is a strictly linear state machine:
//
//	Initializing -> PreExec -> Launching -> LivenessCheck ->
//	AwaitingShutdown -> Terminating -> Released -> Done
//
// It first acquires the shutdown signal source, a hardware line that reports
// an imminent loss of power. It then runs a one-shot pre-execution application
// to completion and starts every supervised application without waiting for
// them. After a short grace delay, a single liveness pass reports any
// application that has already died. The supervisor then blocks on the
// shutdown source. Once it fires, every application still running is sent
// SIGTERM and the supervisor reaps children until it has none left, after
// which the shutdown source is released.
//
// Supervised applications are never restarted, ordered or otherwise related to
// each other. The handle table is a fixed slice indexed by launch order and is
// only ever touched by the goroutine running the supervisor, so no locking is
// involved.
//
// Every step reports what it does as an Event through a Journaler. Package
// journal renders those events for the console and into a persistent journal
// file.
package initsys
