// Package memstats captures point-in-time snapshots of the process's
// memory state: heap totals plus a breakdown into named memory pools.
//
// A Snapshot is an immutable value. Capture never fails: any statistic the
// runtime cannot report is substituted with the Unbounded sentinel. Pools
// are sorted by kind at capture time so report layout is stable regardless
// of enumeration order.
package memstats
