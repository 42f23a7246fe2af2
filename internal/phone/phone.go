// Package phone extracts and normalizes Iranian mobile numbers from webhook
// payload text. Canonical form is 09XXXXXXXXX.
package phone

import (
	"regexp"
	"strings"
)

// patterns accepted in free text. Word boundaries keep 12+ digit runs from
// matching partially and 10-digit matches from overlapping canonical ones.
var patterns = []*regexp.Regexp{
	regexp.MustCompile(`\b09\d{9}\b`),    // 09XXXXXXXXX
	regexp.MustCompile(`\+989\d{9}\b`),   // +989XXXXXXXXX
	regexp.MustCompile(`\b00989\d{9}\b`), // 00989XXXXXXXXX
	regexp.MustCompile(`\b9\d{9}\b`),     // 9XXXXXXXXX (leading zero dropped)
}

var nonPhoneRunes = regexp.MustCompile(`[^\d+]`)

// Extract returns the ordered, distinct valid mobile numbers found in text,
// each normalized to canonical form. An empty result is not an error.
func Extract(text string) []string {
	var phones []string
	seen := make(map[string]struct{})

	clean := strings.TrimSpace(text)
	for _, re := range patterns {
		for _, match := range re.FindAllString(clean, -1) {
			n := Normalize(match)
			if n == "" || !IsValid(n) {
				continue
			}
			if _, dup := seen[n]; dup {
				continue
			}
			phones = append(phones, n)
			seen[n] = struct{}{}
		}
	}

	return phones
}

// Normalize converts a raw candidate to 09XXXXXXXXX. Returns "" when the
// input cannot be a canonical mobile number; it never truncates or pads.
func Normalize(raw string) string {
	s := nonPhoneRunes.ReplaceAllString(raw, "")

	switch {
	case strings.HasPrefix(s, "+989") && len(s) == 14:
		return "0" + s[3:]
	case strings.HasPrefix(s, "00989") && len(s) == 15:
		return "0" + s[5:]
	case strings.HasPrefix(s, "9") && len(s) == 10:
		return "0" + s
	case strings.HasPrefix(s, "09") && len(s) == 11:
		return s
	default:
		return ""
	}
}

// IsValid reports whether raw normalizes to a valid Iranian mobile number:
// 11 digits, prefix 091-099.
func IsValid(raw string) bool {
	n := Normalize(raw)
	if len(n) != 11 || !strings.HasPrefix(n, "09") {
		return false
	}
	return n[2] >= '1' && n[2] <= '9'
}
