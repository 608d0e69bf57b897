package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// Mode selects a rendering
type Mode int

const (
	ModePlain Mode = iota
	ModeHTML
)

func (m Mode) String() string {
	switch m {
	case ModePlain:
		return "plain"
	case ModeHTML:
		return "html"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Renderer renders a Buffer in either mode. It never modifies the Buffer,
// so one Buffer can be rendered any number of times.
type Renderer struct {
	trim         TrimOptions
	stripUnknown bool
	html         *Formatter
	plain        *Formatter
}

// RendererOption configures a Renderer
type RendererOption func(*Renderer)

// WithTrim enables header/footer trimming before substitution
func WithTrim(opts TrimOptions) RendererOption {
	return func(r *Renderer) {
		r.trim = opts
	}
}

// WithStripUnknown removes escape sequences the maps do not cover
func WithStripUnknown(strip bool) RendererOption {
	return func(r *Renderer) {
		r.stripUnknown = strip
	}
}

// NewRenderer creates a Renderer with both formatters compiled
func NewRenderer(opts ...RendererOption) *Renderer {
	r := &Renderer{
		html:  NewFormatter(HTMLMap()),
		plain: NewFormatter(PlainMap()),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render returns the captured output in the given mode
func (r *Renderer) Render(buf *Buffer, mode Mode) (string, error) {
	text, err := buf.Text()
	if err != nil {
		return "", err
	}
	text = Trim(text, r.trim)

	var out string
	switch mode {
	case ModeHTML:
		out = r.html.Format(text)
	case ModePlain:
		out = r.plain.Format(text)
	default:
		return "", fmt.Errorf("unknown render mode %v", mode)
	}

	if r.stripUnknown {
		out = stripEscapes(out)
	}
	return out, nil
}

// HTML renders buf as an HTML fragment
func (r *Renderer) HTML(buf *Buffer) (string, error) {
	return r.Render(buf, ModeHTML)
}

// Plain renders buf as plain text
func (r *Renderer) Plain(buf *Buffer) (string, error) {
	return r.Render(buf, ModePlain)
}

// stripEscapes removes leftover escape sequences line by line, leaving the
// line structure alone
func stripEscapes(s string) string {
	if !strings.Contains(s, "\x1b") {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if strings.Contains(line, "\x1b") {
			lines[i] = ansi.Strip(line)
		}
	}
	return strings.Join(lines, "\n")
}

const (
	documentHead = "<html><head>\n" +
		"<meta http-equiv=\"Content-Type\" content=\"text/html; charset=utf-8\">\n" +
		"<style type=\"text/css\">\np\n{\nfont-family:monospace;\n}\n</style>\n" +
		"</head><body>\n<p><span>"
	documentTail = "</span></p></body></html>\n"
)

// HTMLDocument wraps an HTML rendering in a minimal document. The leading
// <span> balances the closing tag each color code starts with.
func HTMLDocument(fragment string) string {
	return documentHead + fragment + documentTail
}
