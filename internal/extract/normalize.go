package extract

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// A count with the ten-thousand magnitude suffix, e.g. "1.2万", "3w", "4.5 W".
	magnitudePattern = regexp.MustCompile(`^([\d.]+)\s*[万wW]$`)
	numberPattern    = regexp.MustCompile(`^(\d+(\.\d*)?|\.\d+)$`)
)

// magnitudeDigits is log10 of the suffix multiplier (×10,000).
const magnitudeDigits = 4

// ParseCount converts a displayed counter such as "1,024", "1.2万" or "3.5w" into
// an integer. Fractions are truncated. Anything unparseable, including the
// placeholder text shown for zero ("赞"), yields 0.
func ParseCount(text string) int {
	s := strings.ReplaceAll(strings.TrimSpace(text), ",", "")
	if s == "" {
		return 0
	}

	shift := 0
	if m := magnitudePattern.FindStringSubmatch(s); m != nil {
		s = m[1]
		shift = magnitudeDigits
	}
	if !numberPattern.MatchString(s) {
		return 0
	}

	// Shift the decimal point right by `shift` digits on the literal digits,
	// so "2.3万" is exactly 23000 with no float rounding. Anything past int
	// range is unparseable.
	whole, frac, _ := strings.Cut(s, ".")
	if len(frac) > shift {
		frac = frac[:shift]
	}
	digits := whole + frac + strings.Repeat("0", shift-len(frac))
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return n
}
