package render

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/sadopc/apitester/internal/core/request"
)

// Catppuccin Mocha accents.
var (
	colorText   = lipgloss.Color("#cdd6f4")
	colorMuted  = lipgloss.Color("#585b70")
	colorRed    = lipgloss.Color("#f38ba8")
	colorPeach  = lipgloss.Color("#fab387")
	colorYellow = lipgloss.Color("#f9e2af")
	colorGreen  = lipgloss.Color("#a6e3a1")
	colorBlue   = lipgloss.Color("#89b4fa")
	colorMauve  = lipgloss.Color("#cba6f7")
)

// Styles holds the Lip Gloss styles used for terminal output.
type Styles struct {
	Muted lipgloss.Style
	Bold  lipgloss.Style
	Error lipgloss.Style
	URL   lipgloss.Style
	Key   lipgloss.Style

	renderer *lipgloss.Renderer
}

// NewStyles builds styles bound to w. Colour is disabled unless color is set.
func NewStyles(w io.Writer, color bool) Styles {
	r := lipgloss.NewRenderer(w)
	if color {
		r.SetColorProfile(termenv.TrueColor)
	} else {
		r.SetColorProfile(termenv.Ascii)
	}
	return Styles{
		Muted:    r.NewStyle().Foreground(colorMuted),
		Bold:     r.NewStyle().Foreground(colorText).Bold(true),
		Error:    r.NewStyle().Foreground(colorRed).Bold(true),
		URL:      r.NewStyle().Foreground(colorText).Underline(true),
		Key:      r.NewStyle().Foreground(colorMauve),
		renderer: r,
	}
}

// Method returns the style for an HTTP method.
func (s Styles) Method(m request.Method) lipgloss.Style {
	var c lipgloss.Color
	switch m {
	case request.MethodGet:
		c = colorGreen
	case request.MethodPost:
		c = colorYellow
	case request.MethodPut:
		c = colorBlue
	case request.MethodPatch:
		c = colorPeach
	case request.MethodDelete:
		c = colorRed
	default:
		c = colorText
	}
	return s.renderer.NewStyle().Foreground(c).Bold(true)
}

// Status returns the style for an HTTP status code. Zero is a transport
// failure.
func (s Styles) Status(code int) lipgloss.Style {
	var c lipgloss.Color
	switch {
	case code >= 200 && code < 300:
		c = colorGreen
	case code >= 300 && code < 400:
		c = colorBlue
	case code >= 400 && code < 500:
		c = colorYellow
	case code >= 500, code == 0:
		c = colorRed
	default:
		c = colorText
	}
	return s.renderer.NewStyle().Foreground(c).Bold(true)
}
