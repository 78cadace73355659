package postcode

import (
	"regexp"
	"strings"
)

// UK postcode format, including the GIR 0AA special case.
var ukPostcodeRe = regexp.MustCompile(`^(GIR 0AA|(?:[A-Z]{1,2}\d{1,2}[A-Z]?)\s?\d[A-Z]{2})$`)

// Normalize trims and upper-cases a postcode as entered on the checkout form.
func Normalize(pc string) string {
	return strings.ToUpper(strings.TrimSpace(pc))
}

// IsValid reports whether pc is a well-formed UK postcode.
func IsValid(pc string) bool {
	return ukPostcodeRe.MatchString(Normalize(pc))
}

// Checker validates postcodes against the format rule and an optional
// serviceable-area allow-list of outward prefixes. An empty allow-list means
// every valid UK postcode is serviceable.
type Checker struct {
	prefixes []string
}

// NewChecker creates a checker for the given serviceable prefixes.
func NewChecker(prefixes []string) *Checker {
	normalized := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		p = Normalize(p)
		if p != "" {
			normalized = append(normalized, p)
		}
	}
	return &Checker{prefixes: normalized}
}

// Serviceable reports whether pc is valid and inside the serviceable area.
func (c *Checker) Serviceable(pc string) bool {
	pc = Normalize(pc)
	if !IsValid(pc) {
		return false
	}
	if len(c.prefixes) == 0 {
		return true
	}
	compact := strings.ReplaceAll(pc, " ", "")
	for _, prefix := range c.prefixes {
		if strings.HasPrefix(compact, prefix) {
			return true
		}
	}
	return false
}
