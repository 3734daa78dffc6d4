package utils

import (
	"fmt"
	"time"
)

// FormatRoundedUnit renders seconds in the largest whole unit: "45s", "12m", "3h".
// Negative values are formatted by magnitude.
func FormatRoundedUnit(seconds int64) string {
	d := time.Duration(seconds) * time.Second
	if d < 0 {
		d = -d
	}
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int64(d/time.Second))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int64(d/time.Minute))
	default:
		return fmt.Sprintf("%dh", int64(d/time.Hour))
	}
}
