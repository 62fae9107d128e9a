package format

import (
	"fmt"
	"time"
)

// Timer renders d the way a recording timer shows it: "M:SS", or
// "H:MM:SS" from one hour up. Partial seconds are dropped.
func Timer(d time.Duration) string {
	if d < 0 {
		return "0:00"
	}
	s := int(d / time.Second)
	h := s / 3600
	m := (s % 3600) / 60
	sec := s % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%d:%02d", m, sec)
}

// Seconds is Timer for a float second count.
func Seconds(seconds float64) string {
	return Timer(time.Duration(seconds * float64(time.Second)))
}
