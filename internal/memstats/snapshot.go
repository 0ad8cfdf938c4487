package memstats

import (
	"sort"
	"time"
)

// Unbounded marks a byte amount the runtime does not cap or cannot report.
const Unbounded int64 = -1

// Kind classifies a memory pool. The zero value is KindHeap.
type Kind int

const (
	KindHeap Kind = iota
	KindNonHeap
)

func (k Kind) String() string {
	switch k {
	case KindHeap:
		return "Heap memory"
	case KindNonHeap:
		return "Non-heap memory"
	default:
		return "Unknown"
	}
}

// PoolUsage describes one named memory region.
// Any of the byte fields may be Unbounded.
type PoolUsage struct {
	Name           string
	Kind           Kind
	InitBytes      int64
	CommittedBytes int64
	MaxBytes       int64
	UsedBytes      int64
}

// Snapshot is one capture of the process's memory state. It is created
// fresh per report and never mutated afterwards.
type Snapshot struct {
	FreeBytes  int64
	TotalBytes int64
	MaxBytes   int64
	Pools      []PoolUsage

	// RuntimeStart is the instant the host runtime itself came up,
	// as opposed to the application-level start time the report
	// generator is constructed with.
	RuntimeStart time.Time
}

// Provider is the capability that yields snapshots. Capture cannot fail;
// unavailable metrics come back as Unbounded.
type Provider interface {
	Capture() Snapshot
}

// sortPools orders pools by kind, keeping the source order among equal
// kinds, and returns the same slice.
func sortPools(pools []PoolUsage) []PoolUsage {
	sort.SliceStable(pools, func(i, j int) bool {
		return pools[i].Kind < pools[j].Kind
	})
	return pools
}
