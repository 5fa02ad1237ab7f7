package goofish

import (
	"strings"

	"github.com/PuerkitoBio/purell"
)

// NormalizeUrl turns protocol-relative image/detail urls into explicit
// https and runs the result through safe normalization. Unparsable input
// is returned trimmed rather than dropped.
func NormalizeUrl(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "//") {
		trimmed = "https:" + trimmed
	}
	normalized, err := purell.NormalizeURLString(trimmed, purell.FlagsSafe)
	if err != nil {
		return trimmed
	}
	return normalized
}
