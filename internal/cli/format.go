package cli

import (
	"fmt"
	"strings"
	"time"

	"signal-engine/internal/models"
)

// FormatPrice formats a futures price snapped to the tick grid.
func FormatPrice(price float64) string {
	return fmt.Sprintf("%.2f", price)
}

// FormatTicks formats a stop distance in ticks.
func FormatTicks(points float64) string {
	return fmt.Sprintf("%.1f ticks", points/models.TickSize)
}

// FormatDollars formats a dollar amount with sign.
func FormatDollars(amount float64) string {
	if amount < 0 {
		return fmt.Sprintf("-$%.2f", -amount)
	}
	return fmt.Sprintf("$%.2f", amount)
}

// FormatConfidence formats a [0,1] confidence as a percentage.
func FormatConfidence(conf float64) string {
	return fmt.Sprintf("%.1f%%", conf*100)
}

// FormatPercent formats a percentage with sign.
func FormatPercent(value float64) string {
	sign := ""
	if value > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, value)
}

// FormatRiskReward formats a risk-reward ratio.
func FormatRiskReward(rr float64) string {
	return fmt.Sprintf("1:%.2f", rr)
}

// FormatSize formats a position size in contracts.
func FormatSize(size float64) string {
	return fmt.Sprintf("%.2fx", size)
}

// FormatTime formats a timestamp in UTC.
func FormatTime(t time.Time) string {
	return t.UTC().Format("15:04:05")
}

// FormatDateTime formats a datetime in UTC.
func FormatDateTime(t time.Time) string {
	return t.UTC().Format("02-Jan-2006 15:04:05")
}

// FormatLatency formats an evaluation duration at sub-millisecond
// resolution.
func FormatLatency(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%.1fms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

// TruncateString truncates a string to max length with ellipsis.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// PadRight pads a string to the right.
func PadRight(s string, length int) string {
	if len(s) >= length {
		return s
	}
	return s + strings.Repeat(" ", length-len(s))
}

// PadLeft pads a string to the left.
func PadLeft(s string, length int) string {
	if len(s) >= length {
		return s
	}
	return strings.Repeat(" ", length-len(s)) + s
}
