package memstats

import (
	"math"
	"runtime"
	"runtime/metrics"
	"time"
)

// runtimeStart approximates the Go runtime's start instant. The runtime
// does not expose its own start time, so we record it when this package is
// initialized, which happens during program startup.
var runtimeStart = time.Now()

const gomemlimitMetric = "/gc/gomemlimit:bytes"

// classPool maps one report pool onto a set of runtime/metrics memory
// classes whose byte counts are summed.
type classPool struct {
	name    string
	kind    Kind
	classes []string
}

var classPools = []classPool{
	{"heap-objects", KindHeap, []string{"/memory/classes/heap/objects:bytes"}},
	{"heap-unused", KindHeap, []string{"/memory/classes/heap/unused:bytes"}},
	{"heap-free", KindHeap, []string{"/memory/classes/heap/free:bytes"}},
	{"heap-released", KindHeap, []string{"/memory/classes/heap/released:bytes"}},
	{"stacks", KindNonHeap, []string{
		"/memory/classes/heap/stacks:bytes",
		"/memory/classes/os-stacks:bytes",
	}},
	{"gc-metadata", KindNonHeap, []string{
		"/memory/classes/metadata/mcache/free:bytes",
		"/memory/classes/metadata/mcache/inuse:bytes",
		"/memory/classes/metadata/mspan/free:bytes",
		"/memory/classes/metadata/mspan/inuse:bytes",
		"/memory/classes/metadata/other:bytes",
	}},
	{"profiling-buckets", KindNonHeap, []string{"/memory/classes/profiling/buckets:bytes"}},
	{"runtime-other", KindNonHeap, []string{"/memory/classes/other:bytes"}},
}

// RuntimeProvider reads the Go runtime's own memory accounting.
type RuntimeProvider struct{}

// NewRuntimeProvider returns a provider backed by runtime.ReadMemStats and
// runtime/metrics.
func NewRuntimeProvider() *RuntimeProvider { return &RuntimeProvider{} }

func (p *RuntimeProvider) Capture() Snapshot {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	samples := make([]metrics.Sample, 0, 16)
	samples = append(samples, metrics.Sample{Name: gomemlimitMetric})
	for _, cp := range classPools {
		for _, c := range cp.classes {
			samples = append(samples, metrics.Sample{Name: c})
		}
	}
	metrics.Read(samples)

	vals := make(map[string]int64, len(samples))
	for i := range samples {
		if samples[i].Value.Kind() == metrics.KindUint64 {
			vals[samples[i].Name] = clampInt64(samples[i].Value.Uint64())
		}
	}

	pools := make([]PoolUsage, 0, len(classPools))
	for _, cp := range classPools {
		used := Unbounded
		for _, c := range cp.classes {
			v, ok := vals[c]
			if !ok {
				continue
			}
			if used == Unbounded {
				used = 0
			}
			used += v
		}
		committed := used
		pools = append(pools, PoolUsage{
			Name:           cp.name,
			Kind:           cp.kind,
			InitBytes:      Unbounded,
			CommittedBytes: committed,
			MaxBytes:       Unbounded,
			UsedBytes:      used,
		})
	}

	total := clampInt64(ms.HeapSys)
	free := total - clampInt64(ms.HeapAlloc)
	if free < 0 {
		free = 0
	}

	// GOMEMLIMIT reads as MaxInt64 when no limit is set.
	limit := Unbounded
	if v, ok := vals[gomemlimitMetric]; ok && v != math.MaxInt64 {
		limit = v
	}

	return Snapshot{
		FreeBytes:    free,
		TotalBytes:   total,
		MaxBytes:     limit,
		Pools:        sortPools(pools),
		RuntimeStart: runtimeStart,
	}
}

func clampInt64(v uint64) int64 {
	if v > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(v)
}
