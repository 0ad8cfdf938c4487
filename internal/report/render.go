package report

import (
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/text/number"

	"memmond/internal/memstats"
)

const (
	timeLayout = "2006-01-02 15:04:05"
	mbDivisor  = 1024 * 1024
)

func (g *Generator) render(now time.Time, snap memstats.Snapshot, firstRun bool) string {
	runtimeStart := snap.RuntimeStart
	if runtimeStart.IsZero() {
		runtimeStart = g.processStart
	}

	lines := make([]string, 0, 12+len(snap.Pools))
	lines = append(lines,
		"This report produced at:   "+g.stamp(now),
		"Application running since: "+g.stamp(g.processStart),
		"Runtime started at:        "+g.stamp(runtimeStart),
		"Application running time:  "+formatElapsed(now.Sub(g.processStart)),
		"Runtime running time:      "+formatElapsed(now.Sub(runtimeStart)),
	)
	if firstRun {
		lines = append(lines, "", "First run since application start")
	}
	lines = append(lines, "",
		g.mbLine("Free  memory", snap.FreeBytes),
		g.mbLine("Max   memory", snap.MaxBytes),
		g.mbLine("Total memory", snap.TotalBytes),
		"",
		assemble("Memory Pool", "Type", "Initial", "Total", "Maximum", "Used", ""),
	)
	for _, p := range snap.Pools {
		lines = append(lines, g.poolRow(p))
	}
	return strings.Join(lines, "\r\n")
}

func (g *Generator) stamp(t time.Time) string {
	return t.In(g.loc).Format(timeLayout)
}

func (g *Generator) mbLine(label string, v int64) string {
	return label + ": " + g.mbCell(v)
}

// mbCell renders a byte amount as megabytes with three decimals and
// locale grouping, right-aligned to a fixed width. Unbounded amounts
// render as a blank field, never as "0.000 MB".
func (g *Generator) mbCell(v int64) string {
	if v < 0 {
		return ""
	}
	return fmt.Sprintf("%11s MB", g.mbAmount(v))
}

func (g *Generator) mbAmount(v int64) string {
	mb := float64(v) / mbDivisor
	return g.printer.Sprint(number.Decimal(mb,
		number.MinFractionDigits(3),
		number.MaxFractionDigits(3)))
}

func (g *Generator) poolRow(p memstats.PoolUsage) string {
	pct := ""
	if p.MaxBytes > 0 && p.UsedBytes >= 0 {
		pct = fmt.Sprintf(" (%3d%%)", int64(math.Round(100*float64(p.UsedBytes)/float64(p.MaxBytes))))
	}
	return assemble(p.Name, p.Kind.String(),
		g.mbCell(p.InitBytes), g.mbCell(p.CommittedBytes),
		g.mbCell(p.MaxBytes), g.mbCell(p.UsedBytes), pct)
}

func assemble(pool, typ, initial, total, maximum, used, pct string) string {
	return fmt.Sprintf("%22s  %16s  %14s  %14s  %14s  %14s  %6s",
		pool, typ, initial, total, maximum, used, pct)
}
