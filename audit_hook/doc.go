// Package audithook bridges scheduler lifecycle events to an audit
// trail backend. Each hook builds a structured audit event and hands it
// to a pluggable Recorder; the bundled MemoryRecorder keeps events
// in-process for inspection.
package audithook
