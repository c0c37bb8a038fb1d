package service

import (
	"strconv"
	"strings"
)

// formatAmount groups the integer amount in thousands: 1234567 -> "1,234,567".
func formatAmount(v int64) string {
	negative := v < 0
	digits := strconv.FormatInt(v, 10)
	if negative {
		digits = digits[1:]
	}

	var b strings.Builder
	if negative {
		b.WriteByte('-')
	}
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteByte(',')
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
