package report

import (
	"regexp"
	"strings"
)

// TrimOptions selects which non-report parts of the emerge output are dropped
type TrimOptions struct {
	Header bool // Drop everything before the first merge list entry
	Footer bool // Drop the "Total:" line and everything after it
}

// headerMarker matches the first colored merge list entry: "[" followed by
// green "ebuild" or "binary"
var headerMarker = regexp.MustCompile(`\[\x1b\[32m(?:ebuild|binary)`)

// footerMarker matches a line starting with "Total", with or without colors
var footerMarker = regexp.MustCompile(`(?m)^(?:\x1b\[[0-9;]*m)*Total`)

// Trim applies opts to text. Text without the markers is returned unchanged.
func Trim(text string, opts TrimOptions) string {
	if opts.Header {
		if loc := headerMarker.FindStringIndex(text); loc != nil {
			text = text[loc[0]:]
		}
	}
	if opts.Footer {
		if loc := footerMarker.FindStringIndex(text); loc != nil {
			text = strings.TrimRight(text[:loc[0]], "\n")
			if text != "" {
				text += "\n"
			}
		}
	}
	return text
}
