// Package tasks acquires tracks into a flat output directory with real-time progress reporting.
//
// # Acquisition
//
// [Acquirer.Acquire] drives one track through a fixed sequence of states:
//
//  1. checking    : final file already present, skip with no network call
//  2. resolving   : tiered search, then an optional degraded query
//  3. downloading : audio written to a stem inside <dir>/.songdl-tmp, artifact normalized to <stem>.<format>
//  4. tagging     : best-effort metadata, never fatal
//  5. committing  : atomic rename to the final name
//
// Every exit after downloading starts removes the temp artifacts.
//
// # Runs
//
// [Engine.Run] processes tracks strictly sequentially with a single worker, pausing with a
// randomized delay between tracks that touched the network. Per-track failures never abort a run.
//
// # Progress Reporting
//
// [ProgressUpdate] carries the phase, step counters and a message. Intermediate updates use select
// with default so a slow consumer never blocks the run; per-track terminal updates and the final
// summary block until delivered or the context ends.
package tasks
