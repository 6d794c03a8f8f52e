package solana

import (
	"strconv"
	"strings"
)

// LamportsPerSOL is the number of lamports in one SOL.
const LamportsPerSOL = 1_000_000_000

// SOLDecimals is the decimal precision of native SOL.
const SOLDecimals = 9

// FormatAmount renders a raw integer amount with the given number of
// decimals, trimming trailing zeroes ("1500000", 6 -> "1.5").
func FormatAmount(raw uint64, decimals uint8) string {
	s := strconv.FormatUint(raw, 10)
	if decimals == 0 {
		return s
	}
	d := int(decimals)
	if len(s) <= d {
		s = strings.Repeat("0", d-len(s)+1) + s
	}
	whole, frac := s[:len(s)-d], strings.TrimRight(s[len(s)-d:], "0")
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}
