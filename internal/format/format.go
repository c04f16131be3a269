// Package format renders metric values for display. Output is fixed to an
// en-US style locale so rendered strings are stable across hosts.
package format

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"github.com/nulzo/usage-metrics-api/internal/pricing"
	"github.com/nulzo/usage-metrics-api/pkg/api"
)

const nanosPerUnit = 1_000_000_000

// Currency renders a nano-unit amount as a currency string with two fraction
// digits, e.g. 1_234_560_000_000 nanos -> "$1,234.56". Sub-cent amounts keep
// enough precision to stay non-zero, so a 250-nano cost never renders "$0.00"
// unless it truly is zero.
func Currency(amount pricing.Nanos, currency string) string {
	d := decimal.New(int64(amount), -9)

	symbol := "$"
	if currency != "" && currency != "USD" {
		symbol = currency + " "
	}

	neg := d.IsNegative()
	abs := d.Abs()

	var s string
	if rounded := abs.Round(2); !rounded.IsZero() || abs.IsZero() {
		whole := rounded.Truncate(0)
		frac := rounded.Sub(whole).StringFixed(2)
		s = symbol + humanize.Comma(whole.IntPart()) + strings.TrimPrefix(frac, "0")
	} else {
		// Sub-cent amount: keep full precision rather than rendering a
		// misleading "$0.00".
		s = symbol + abs.String()
	}

	if neg {
		s = "-" + s
	}
	return s
}

// Count renders an event or token count compactly: values under 1000 pass
// through unchanged, larger ones collapse to a suffixed form such as "1.2K",
// "1.2M" or "1.2B" with one fraction digit and trailing zeros trimmed, so
// 1234567 renders "1.2M" and 2000 renders "2K".
func Count(n int64) string {
	neg := n < 0
	abs := n
	if neg {
		abs = -abs
	}

	if abs < 1000 {
		return fmt.Sprintf("%d", n)
	}

	suffixes := []struct {
		threshold int64
		suffix    string
	}{
		{1_000_000_000_000, "T"},
		{1_000_000_000, "B"},
		{1_000_000, "M"},
		{1_000, "K"},
	}

	idx := len(suffixes) - 1
	for i, s := range suffixes {
		if abs >= s.threshold {
			idx = i
			break
		}
	}

	scaled := math.Round(float64(abs)/float64(suffixes[idx].threshold)*10) / 10
	// Rounding can carry into the next band: 999950 is "1M", not "1000K".
	if scaled >= 1000 && idx > 0 {
		idx--
		scaled = math.Round(float64(abs)/float64(suffixes[idx].threshold)*10) / 10
	}

	out := trimZeros(fmt.Sprintf("%.1f", scaled)) + suffixes[idx].suffix
	if neg {
		out = "-" + out
	}
	return out
}

// CountExact renders a count with thousands separators, e.g. "1,234,567".
func CountExact(n int64) string {
	return humanize.Comma(n)
}

// Percentage renders a ratio as a percentage: 0.5 -> "50%". One fraction
// digit is kept when the value is not whole.
func Percentage(ratio float64) string {
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return "-"
	}
	pct := ratio * 100
	if pct == math.Trunc(pct) {
		return fmt.Sprintf("%d%%", int64(pct))
	}
	return trimZeros(fmt.Sprintf("%.1f", pct)) + "%"
}

// Value renders a metric point according to its descriptor type.
func Value(d api.MetricDescriptor, v float64) string {
	switch d.Type {
	case api.MetricTypeCurrency:
		return Currency(pricing.Nanos(math.Round(v)), d.Currency)
	case api.MetricTypePercentage:
		return Percentage(v)
	default:
		return Count(int64(math.Round(v)))
	}
}

func trimZeros(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
