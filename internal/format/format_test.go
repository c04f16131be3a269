package format

import (
	"testing"

	"github.com/nulzo/usage-metrics-api/internal/pricing"
	"github.com/nulzo/usage-metrics-api/pkg/api"
	"github.com/stretchr/testify/assert"
)

func TestCurrency(t *testing.T) {
	tests := []struct {
		name   string
		amount pricing.Nanos
		want   string
	}{
		{"zero", 0, "$0.00"},
		{"whole dollars", 5_000_000_000, "$5.00"},
		{"cents", 1_230_000_000, "$1.23"},
		{"thousands separator", 1_234_560_000_000, "$1,234.56"},
		{"sub cent keeps precision", 2_000_000, "$0.002"},
		{"single nano never zero", 250, "$0.00000025"},
		{"negative", -1_500_000_000, "-$1.50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Currency(tt.amount, "USD"))
		})
	}
}

func TestCurrency_NonUSD(t *testing.T) {
	assert.Equal(t, "EUR 1.23", Currency(1_230_000_000, "EUR"))
}

func TestCount(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1K"},
		{1500, "1.5K"},
		{1234567, "1.2M"},
		{2_000_000, "2M"},
		{3_400_000_000, "3.4B"},
		{1_200_000_000_000, "1.2T"},
		{-1500, "-1.5K"},
		{999_949, "999.9K"},
		{999_950, "1M"},
		{999_950_000, "1B"},
		{-999_950, "-1M"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Count(tt.n), "Count(%d)", tt.n)
	}
}

func TestCountExact(t *testing.T) {
	assert.Equal(t, "1,234,567", CountExact(1234567))
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, "50%", Percentage(0.5))
	assert.Equal(t, "12.5%", Percentage(0.125))
	assert.Equal(t, "-75%", Percentage(-0.75))
	assert.Equal(t, "0%", Percentage(0))
}

func TestValue(t *testing.T) {
	currency := api.MetricDescriptor{Slug: "cost", Type: api.MetricTypeCurrency, Currency: "USD"}
	count := api.MetricDescriptor{Slug: "requests", Type: api.MetricTypeCount}
	pct := api.MetricDescriptor{Slug: "rate", Type: api.MetricTypePercentage}

	assert.Equal(t, "$2.00", Value(currency, 2_000_000_000))
	assert.Equal(t, "1.2M", Value(count, 1234567))
	assert.Equal(t, "50%", Value(pct, 0.5))
}
