// Package cron submits jobs on recurring schedules. Entries pair a cron
// expression with a job type and payload; a tick loop fires entries that
// are due by submitting a fresh job through the engine.
//
// Schedules use the standard 5-field cron syntax plus descriptors like
// "@hourly" and "@every 30s".
package cron
