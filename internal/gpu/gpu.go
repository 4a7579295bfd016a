// Package gpu maps provider GPU descriptions such as "1x H100 SXM5 80GB"
// onto short GPU model names.
package gpu

import (
	"fmt"
	"regexp"
	"strings"
)

// Checked in order; the first match wins, so more specific forms come first.
var patterns = []*regexp.Regexp{
	regexp.MustCompile(`(B300)\s+SXM6`),
	regexp.MustCompile(`(B200)\s+SXM6`),
	regexp.MustCompile(`(H200)\s+SXM5`),
	regexp.MustCompile(`(H100)\s+SXM5`),
	regexp.MustCompile(`(A100)\s+SXM4`),
	regexp.MustCompile(`(RTX\s+PRO)\s+6000`),
	regexp.MustCompile(`(RTX\s+6000)\s+Ada`),
	regexp.MustCompile(`(RTX\s+A6000)`),
	regexp.MustCompile(`(Tesla\s+V100)`),
	regexp.MustCompile(`(L40S)`),
}

// Bare model tokens for descriptions that omit the form factor, e.g. "8x A100 80GB".
var familyPattern = regexp.MustCompile(`\b([ABHLTV]\d{2,3}S?|GH200|GB200)\b`)

// ExtractType returns the GPU model named in description, or "" if none is recognised.
func ExtractType(description string) string {
	if description == "" {
		return ""
	}
	for _, p := range patterns {
		if m := p.FindStringSubmatch(description); m != nil {
			return Normalize(m[1])
		}
	}
	if m := familyPattern.FindStringSubmatch(description); m != nil {
		return m[1]
	}
	return ""
}

// FormatDisplay renders the GPU column: "CPU Only", "Unknown", "H100" or "8xH100".
func FormatDisplay(description string, count int) string {
	if description == "" || count == 0 {
		return "CPU Only"
	}
	return Display(ExtractType(description), count)
}

// Display renders an already-known model name with its count.
func Display(model string, count int) string {
	switch {
	case count == 0:
		return "CPU Only"
	case model == "":
		return "Unknown"
	case count > 1:
		return fmt.Sprintf("%dx%s", count, model)
	}
	return model
}

// Normalize collapses internal whitespace so "RTX  A6000" and "RTX A6000" compare equal.
func Normalize(name string) string {
	return strings.Join(strings.Fields(name), " ")
}
