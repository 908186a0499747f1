package diagnostics

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Renderer turns one diagnostic into displayable output.
type Renderer interface {
	Render(w io.Writer, d Diagnostic) error
}

// Color palette for terminal output.
const (
	ColorError   = lipgloss.Color("#EF4444")
	ColorWarning = lipgloss.Color("#F59E0B")
	ColorInfo    = lipgloss.Color("#3B82F6")
	ColorMuted   = lipgloss.Color("#6B7280")
	ColorSuccess = lipgloss.Color("#10B981")
)

type textStyles struct {
	err     lipgloss.Style
	warning lipgloss.Style
	info    lipgloss.Style
	gutter  lipgloss.Style
	help    lipgloss.Style
}

func newTextStyles(color bool) textStyles {
	if !color {
		plain := lipgloss.NewStyle()
		return textStyles{err: plain, warning: plain, info: plain, gutter: plain, help: plain}
	}
	return textStyles{
		err:     lipgloss.NewStyle().Bold(true).Foreground(ColorError),
		warning: lipgloss.NewStyle().Bold(true).Foreground(ColorWarning),
		info:    lipgloss.NewStyle().Foreground(ColorInfo),
		gutter:  lipgloss.NewStyle().Foreground(ColorMuted),
		help:    lipgloss.NewStyle().Foreground(ColorSuccess),
	}
}

// TextRenderer prints a human readable header, the location and, when the
// source text is attached, a code frame with a caret under the span.
type TextRenderer struct {
	styles textStyles
	title  cases.Caser
}

// NewTextRenderer creates a text renderer. With color disabled the output
// contains no escape sequences.
func NewTextRenderer(color bool) *TextRenderer {
	return &TextRenderer{
		styles: newTextStyles(color),
		title:  cases.Title(language.English),
	}
}

// Render implements Renderer
func (r *TextRenderer) Render(w io.Writer, d Diagnostic) error {
	var b strings.Builder

	label := r.title.String(d.Severity.String())
	if d.Code != "" {
		label += "[" + d.Code + "]"
	}
	b.WriteString(r.severityStyle(d.Severity).Render(label))
	b.WriteString(": ")
	b.WriteString(d.Message)
	b.WriteByte('\n')

	if d.File != "" {
		loc := d.File
		if d.Line > 0 {
			loc = fmt.Sprintf("%s:%d:%d", d.File, d.Line, max(d.Column, 1))
		}
		b.WriteString(r.styles.gutter.Render("  --> "))
		b.WriteString(loc)
		b.WriteByte('\n')
	}

	if frame := r.codeFrame(d); frame != "" {
		b.WriteString(frame)
	}

	if d.Suggestion != "" {
		b.WriteString(r.styles.help.Render("  = help: "))
		b.WriteString(d.Suggestion)
		b.WriteByte('\n')
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func (r *TextRenderer) severityStyle(s Severity) lipgloss.Style {
	switch s {
	case SeverityError:
		return r.styles.err
	case SeverityWarning:
		return r.styles.warning
	default:
		return r.styles.info
	}
}

func (r *TextRenderer) codeFrame(d Diagnostic) string {
	if d.Source == nil || d.Line <= 0 {
		return ""
	}
	line, ok := sourceLine(d.Source.Text, d.Line)
	if !ok {
		return ""
	}

	num := strconv.Itoa(d.Line)
	pad := strings.Repeat(" ", len(num))
	bar := r.styles.gutter.Render(" | ")

	var b strings.Builder
	b.WriteString(pad + bar + "\n")
	b.WriteString(r.styles.gutter.Render(num) + bar + line + "\n")

	col := max(d.Column, 1)
	if col-1 <= len(line) {
		// Reuse the line's own whitespace so tabs keep the caret aligned.
		var indent strings.Builder
		for _, c := range line[:col-1] {
			if c == '\t' {
				indent.WriteByte('\t')
			} else {
				indent.WriteByte(' ')
			}
		}
		carets := strings.Repeat("^", max(d.Length, 1))
		b.WriteString(pad + bar + indent.String() + r.severityStyle(d.Severity).Render(carets) + "\n")
	}
	return b.String()
}

func sourceLine(text string, n int) (string, bool) {
	for i := 1; ; i++ {
		idx := strings.IndexByte(text, '\n')
		if i == n {
			if idx < 0 {
				return strings.TrimRight(text, "\r"), true
			}
			return strings.TrimRight(text[:idx], "\r"), true
		}
		if idx < 0 {
			return "", false
		}
		text = text[idx+1:]
	}
}

// JSONRenderer writes one JSON object per diagnostic.
type JSONRenderer struct{}

// Render implements Renderer
func (JSONRenderer) Render(w io.Writer, d Diagnostic) error {
	return json.NewEncoder(w).Encode(d)
}

// NewRenderer returns the renderer for a named output format.
func NewRenderer(format string, color bool) (Renderer, error) {
	switch format {
	case "", "text":
		return NewTextRenderer(color), nil
	case "json":
		return JSONRenderer{}, nil
	default:
		return nil, fmt.Errorf("unsupported diagnostics format: %s (supported: text, json)", format)
	}
}
