//go:build unit

package tokenfmt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseTokenCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected int64
	}{
		{name: "trillions", input: "1.16T", expected: 1_160_000_000_000},
		{name: "billions", input: "706B", expected: 706_000_000_000},
		{name: "giga_alias", input: "2G", expected: 2_000_000_000},
		{name: "millions", input: "445M", expected: 445_000_000},
		{name: "thousands", input: "13.4K", expected: 13_400},
		{name: "lowercase_suffix", input: "3.5b", expected: 3_500_000_000},
		{name: "no_suffix", input: "512", expected: 512},
		{name: "commas_stripped", input: "1,234", expected: 1234},
		{name: "surrounding_space", input: " 7.5M ", expected: 7_500_000},
		{name: "empty", input: "", expected: 0},
		{name: "garbage", input: "tokens", expected: 0},
		{name: "negative_rejected", input: "-5M", expected: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, ParseTokenCount(tc.input))
		})
	}
}

func TestFormatTokens(t *testing.T) {
	t.Parallel()

	tests := []struct {
		count    int64
		expected string
	}{
		{1_160_000_000_000, "1.16T"},
		{706_000_000_000, "706.0B"},
		{445_000_000, "445.0M"},
		{13_400, "13.4K"},
		{512, "512"},
		{0, "0"},
	}

	for _, tc := range tests {
		require.Equal(t, tc.expected, FormatTokens(tc.count))
	}
}

func TestFormatDollars(t *testing.T) {
	t.Parallel()

	require.Equal(t, "$2.50M", FormatDollars(2_500_000))
	require.Equal(t, "$13.4K", FormatDollars(13_400))
	require.Equal(t, "$99.99", FormatDollars(99.99))
	require.Equal(t, "$0.00", FormatDollars(0))
}

func TestFormatPricePerMillion(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Free", FormatPricePerMillion(0))
	require.Equal(t, "$3.00/M", FormatPricePerMillion(0.000003))
	require.Equal(t, "$0.2000/M", FormatPricePerMillion(0.0000002))
}
