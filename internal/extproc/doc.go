// Package extproc runs external analysis processes under a global
// concurrency bound. The Limiter caps how many processes may run at once
// across all files; the Runner spawns one process, drains both output
// streams concurrently, and enforces a per-invocation timeout with
// guaranteed cleanup.
package extproc
