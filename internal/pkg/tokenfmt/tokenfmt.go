// Package tokenfmt parses and formats the human-readable token and dollar
// labels used on the OpenRouter rankings pages ("1.16T", "706B", "$1.2M").
package tokenfmt

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	Thousand = 1_000
	Million  = 1_000_000
	Billion  = 1_000_000_000
	Trillion = 1_000_000_000_000
)

var labelPattern = regexp.MustCompile(`(?i)^([0-9.]+)\s*([TGBMK])?$`)

// ParseTokenCount parses labels like "1.16T", "706B", "445M", "13.4K" into
// an integer token count. Unparsable input returns 0.
func ParseTokenCount(text string) int64 {
	text = strings.ReplaceAll(strings.TrimSpace(text), ",", "")
	m := labelPattern.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	number, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	var multiplier float64 = 1
	switch strings.ToUpper(m[2]) {
	case "T":
		multiplier = Trillion
	case "B", "G":
		multiplier = Billion
	case "M":
		multiplier = Million
	case "K":
		multiplier = Thousand
	}
	return int64(number * multiplier)
}

// FormatTokens renders a token count the way the rankings page does.
func FormatTokens(count int64) string {
	switch {
	case count >= Trillion:
		return fmt.Sprintf("%.2fT", float64(count)/Trillion)
	case count >= Billion:
		return fmt.Sprintf("%.1fB", float64(count)/Billion)
	case count >= Million:
		return fmt.Sprintf("%.1fM", float64(count)/Million)
	case count >= Thousand:
		return fmt.Sprintf("%.1fK", float64(count)/Thousand)
	default:
		return strconv.FormatInt(count, 10)
	}
}

// FormatDollars renders a dollar amount with magnitude-appropriate precision.
func FormatDollars(amount float64) string {
	switch {
	case amount >= Million:
		return fmt.Sprintf("$%.2fM", amount/Million)
	case amount >= Thousand:
		return fmt.Sprintf("$%.1fK", amount/Thousand)
	default:
		return fmt.Sprintf("$%.2f", amount)
	}
}

// FormatPricePerMillion renders a per-token price as $/M tokens.
// Zero-priced models render as "Free".
func FormatPricePerMillion(perToken float64) string {
	if perToken == 0 {
		return "Free"
	}
	perMillion := perToken * Million
	if perMillion >= 1 {
		return fmt.Sprintf("$%.2f/M", perMillion)
	}
	return fmt.Sprintf("$%.4f/M", perMillion)
}
