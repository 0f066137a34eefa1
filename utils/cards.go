package utils

import (
	"strings"
	"unicode"
)

// CardLast4 returns the last four digits of a card number, ignoring spaces
// and dashes. Numbers with fewer than four digits return what is there.
func CardLast4(number string) string {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, number)

	if len(digits) <= 4 {
		return digits
	}
	return digits[len(digits)-4:]
}

// MaskCard renders a card number as •••• •••• •••• 1234.
func MaskCard(number string) string {
	last4 := CardLast4(number)
	if last4 == "" {
		return ""
	}
	return "•••• •••• •••• " + last4
}
