package memstats

// StaticProvider returns a fixed snapshot on every capture. It is used by
// tests and by ad-hoc rendering where deterministic output matters.
type StaticProvider struct {
	Snap Snapshot
}

func (p *StaticProvider) Capture() Snapshot {
	out := p.Snap
	out.Pools = sortPools(append([]PoolUsage(nil), p.Snap.Pools...))
	return out
}
