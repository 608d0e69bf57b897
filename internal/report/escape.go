package report

// EscapeMap maps a literal sequence found in captured output to its
// replacement
type EscapeMap map[string]string

// escapeCode is one color sequence emitted by portage and its HTML rendering
type escapeCode struct {
	seq   string
	color string
	bold  bool
}

// escapeCodes is the canonical table. Portage prints these through
// portage.output when --color y is in effect.
var escapeCodes = []escapeCode{
	{"\x1b[32m", "darkgreen", false},
	{"\x1b[32;01m", "limegreen", true},
	{"\x1b[31m", "darkred", false},
	{"\x1b[31;01m", "red", true},
	{"\x1b[33m", "brown", false},
	{"\x1b[33;01m", "orange", true},
	{"\x1b[34m", "darkblue", false},
	{"\x1b[34;01m", "blue", true},
	{"\x1b[35m", "purple", false},
	{"\x1b[35;01m", "fuchsia", true},
	{"\x1b[36m", "teal", false},
	{"\x1b[36;01m", "turquoise", true},
	{"\x1b[01m", "black", true},
	{"\x1b[39;49;00m", "black", false},
	{"\x1b[0m", "black", false},
}

// lineBreak is the one structural separator both renderings keep
const lineBreak = "\n"

// htmlEntities are only meaningful in the HTML rendering
var htmlEntities = EscapeMap{
	"&": "&amp;",
	"<": "&lt;",
	">": "&gt;",
}

// spanFor returns the markup that closes the current span and opens a new one
func spanFor(c escapeCode) string {
	weight := "normal"
	if c.bold {
		weight = "bold"
	}
	return `</span><span style="color:` + c.color + `;font-weight:` + weight + `">`
}

// HTMLMap returns the escape map for the HTML rendering
func HTMLMap() EscapeMap {
	m := make(EscapeMap, len(escapeCodes)+len(htmlEntities)+1)
	for _, c := range escapeCodes {
		m[c.seq] = spanFor(c)
	}
	for k, v := range htmlEntities {
		m[k] = v
	}
	m[lineBreak] = "<br>\n"
	return m
}

// PlainMap returns the escape map for the plain-text rendering: every color
// code maps to the empty string and newlines are kept.
func PlainMap() EscapeMap {
	m := make(EscapeMap, len(escapeCodes)+1)
	for _, c := range escapeCodes {
		m[c.seq] = ""
	}
	m[lineBreak] = lineBreak
	return m
}

// Sequences returns the canonical color sequences
func Sequences() []string {
	seqs := make([]string, len(escapeCodes))
	for i, c := range escapeCodes {
		seqs[i] = c.seq
	}
	return seqs
}
