// Package sched runs named jobs on cron or interval schedules.
//
// Specs accept three syntaxes: standard 5-field cron expressions
// ("0 7 * * *"), cron descriptors ("@hourly", "@every 55m"), and plain Go
// durations ("30m"), which are normalized to "@every" form. Schedules are
// evaluated in a configurable timezone.
//
// A job that is still running when its next trigger fires is skipped, and
// each run is bounded by a per-job timeout. Outcomes are kept in a small
// in-memory history ring.
package sched
