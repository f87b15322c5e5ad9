package util

import (
	"math"
	"time"
)

func yearBounds(year int) (time.Time, time.Time) {
	return time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(year+1, 1, 1, 0, 0, 0, 0, time.UTC)
}

// DecimalYearToTime converts a decimal year (2005.5) to a UTC time. The
// fraction is taken relative to the length of that calendar year.
func DecimalYearToTime(decyear float64) time.Time {
	year := int(math.Floor(decyear))
	start, end := yearBounds(year)
	frac := decyear - float64(year)
	offset := time.Duration(math.Round(frac * float64(end.Sub(start))))
	return start.Add(offset)
}

// TimeToDecimalYear is the inverse of DecimalYearToTime. The zero time maps to 0.
func TimeToDecimalYear(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	t = t.UTC()
	start, end := yearBounds(t.Year())
	return float64(t.Year()) + float64(t.Sub(start))/float64(end.Sub(start))
}
