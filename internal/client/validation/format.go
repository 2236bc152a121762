// Package validation formats and checks voter and admin input before any
// request is sent. Failures are *Error values that match
// client.ErrValidation, so a form error is never mistaken for a backend one.
package validation

import (
	"strings"
)

const (
	AadhaarDigits = 12
	PhoneDigits   = 10
	OTPDigits     = 6
)

// digits returns the ASCII digits of s, at most limit of them.
func digits(s string, limit int) string {
	var b strings.Builder
	for _, r := range s {
		if b.Len() == limit {
			break
		}
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FormatAadhaar keeps the first 12 digits of s and groups them in runs of
// four separated by single spaces: "123456789012" -> "1234 5678 9012".
func FormatAadhaar(s string) string {
	d := digits(s, AadhaarDigits)

	var b strings.Builder
	for i, r := range d {
		if i > 0 && i%4 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// AadhaarDigitsOf strips everything but the first 12 digits.
func AadhaarDigitsOf(s string) string {
	return digits(s, AadhaarDigits)
}

// NormalizePhone strips non-digits and truncates to 10 digits:
// "98-76 543210x" -> "9876543210".
func NormalizePhone(s string) string {
	return digits(s, PhoneDigits)
}

func isDigits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
