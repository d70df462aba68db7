package dashboard

import (
	"fmt"
	"strconv"
	"time"
)

// FormatTemperature formats degrees Celsius as "X.X°C"
func FormatTemperature(c float64) string {
	return fmt.Sprintf("%.1f°C", c)
}

// FormatHumidity formats relative humidity as "X%"
func FormatHumidity(h float64) string {
	return fmt.Sprintf("%.0f%%", h)
}

// FormatQuantity drops trailing zeros: 2 -> "2", 0.5 -> "0.5".
func FormatQuantity(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}

// FormatAge formats how long before now t was, as "just now", "Xm", "Xh Ym" or "Xd".
func FormatAge(t, now time.Time) string {
	if t.IsZero() || now.IsZero() {
		return ""
	}
	d := now.Sub(t)
	if d < time.Minute {
		return "just now"
	}
	if d >= 24*time.Hour {
		return fmt.Sprintf("%dd", int64(d/(24*time.Hour)))
	}
	return FormatDuration(int64(d.Seconds()))
}

// FormatDuration formats duration in seconds to "Xh Ym" or "Xm"
func FormatDuration(seconds int64) string {
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
