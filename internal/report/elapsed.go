package report

import (
	"strconv"
	"strings"
	"time"
)

// formatElapsed decomposes a duration into days, hours-of-day,
// minutes-of-hour and seconds-of-minute. The days component appears only
// when positive, but once any higher unit has been printed every lower
// unit down to minutes is printed too, even when zero, so "1 day 5
// minutes" can never be misread. Seconds are always printed.
func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	seconds := int64(d / time.Second)
	minutes := seconds / 60
	secondsOfMinute := seconds - minutes*60
	hours := minutes / 60
	minutesOfHour := minutes - hours*60
	days := hours / 24
	hoursOfDay := hours - days*24

	var b strings.Builder
	cascade := false
	if days > 0 {
		writeUnit(&b, days, "day")
		b.WriteByte(' ')
		cascade = true
	}
	if hoursOfDay > 0 || cascade {
		writeUnit(&b, hoursOfDay, "hour")
		b.WriteByte(' ')
		cascade = true
	}
	if minutesOfHour > 0 || cascade {
		writeUnit(&b, minutesOfHour, "minute")
		b.WriteByte(' ')
	}
	writeUnit(&b, secondsOfMinute, "second")
	return b.String()
}

func writeUnit(b *strings.Builder, v int64, unit string) {
	b.WriteString(strconv.FormatInt(v, 10))
	b.WriteByte(' ')
	b.WriteString(unit)
	if v != 1 {
		b.WriteByte('s')
	}
}
