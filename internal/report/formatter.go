package report

import (
	"regexp"
	"sort"
	"strings"
)

// Formatter replaces every key of an EscapeMap in a single pass
type Formatter struct {
	repl    map[string]string
	pattern *regexp.Regexp
}

// NewFormatter compiles m into one alternation. Keys are quoted so they match
// literally, and longer keys come first so that a key never shadows another
// key it is a prefix of.
func NewFormatter(m EscapeMap) *Formatter {
	f := &Formatter{repl: make(map[string]string, len(m))}

	keys := make([]string, 0, len(m))
	for k, v := range m {
		if k == "" {
			continue
		}
		f.repl[k] = v
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return f
	}

	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	quoted := make([]string, len(keys))
	for i, k := range keys {
		quoted[i] = regexp.QuoteMeta(k)
	}
	f.pattern = regexp.MustCompile(strings.Join(quoted, "|"))
	return f
}

// Format returns text with every match replaced. Text between matches is
// copied unchanged and in order.
func (f *Formatter) Format(text string) string {
	if f.pattern == nil {
		return text
	}
	return f.pattern.ReplaceAllStringFunc(text, func(match string) string {
		return f.repl[match]
	})
}

// Format is a shorthand for NewFormatter(m).Format(text)
func Format(text string, m EscapeMap) string {
	return NewFormatter(m).Format(text)
}
