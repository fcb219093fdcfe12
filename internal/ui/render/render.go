package render

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromastyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/dustin/go-humanize"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"github.com/sadopc/apitester/internal/core/request"
	"github.com/sadopc/apitester/internal/protocol"
)

// ErrNoMatch is returned when a body query selects nothing.
var ErrNoMatch = errors.New("query matched nothing")

// Options selects what Response prints.
type Options struct {
	Headers bool   // print response headers
	Timing  bool   // print the timing breakdown
	Raw     bool   // print the body exactly as received
	Query   string // gjson path to extract from the body
}

// Printer writes responses and history to a terminal or pipe.
type Printer struct {
	w      io.Writer
	color  bool
	styles Styles
}

// NewPrinter creates a printer. When color is set, output is styled and
// bodies are syntax highlighted.
func NewPrinter(w io.Writer, color bool) *Printer {
	return &Printer{w: w, color: color, styles: NewStyles(w, color)}
}

// Response prints the status line, then headers, timing and body as asked.
func (p *Printer) Response(rec request.Record, resp protocol.Response, opts Options) error {
	s := p.styles
	fmt.Fprintf(p.w, "%s %s\n", s.Method(rec.Method).Render(string(rec.Method)), s.URL.Render(rec.URL))

	if msg, ok := resp.ErrorMessage(); ok {
		fmt.Fprintf(p.w, "%s  %s\n", s.Status(0).Render(resp.StatusText), s.Muted.Render(fmt.Sprintf("%d ms", resp.Time)))
		fmt.Fprintf(p.w, "%s\n", s.Error.Render(msg))
		return nil
	}

	fmt.Fprintf(p.w, "%s  %s  %s\n",
		s.Status(resp.Status).Render(fmt.Sprintf("%d %s", resp.Status, resp.StatusText)),
		s.Muted.Render(fmt.Sprintf("%d ms", resp.Time)),
		s.Muted.Render(FormatSize(resp.Size)),
	)

	if opts.Headers {
		fmt.Fprintln(p.w)
		p.headers(resp.Headers)
	}
	if opts.Timing && resp.Timing != nil {
		fmt.Fprintln(p.w)
		p.timing(resp)
	}

	body, err := p.body(resp, opts)
	if err != nil {
		return err
	}
	if body != "" {
		fmt.Fprintln(p.w)
		fmt.Fprintln(p.w, strings.TrimRight(body, "\n"))
	}
	return nil
}

func (p *Printer) headers(h map[string]string) {
	names := make([]string, 0, len(h))
	for k := range h {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		fmt.Fprintf(p.w, "%s: %s\n", p.styles.Key.Render(k), h[k])
	}
}

func (p *Printer) timing(resp protocol.Response) {
	t := resp.Timing
	row := func(label string, v fmt.Stringer) {
		fmt.Fprintf(p.w, "%s %s\n", p.styles.Key.Render(fmt.Sprintf("%-13s", label)), v)
	}
	row("DNS Lookup", t.DNSLookup)
	row("TCP Connect", t.TCPConnect)
	row("TLS Handshake", t.TLSHandshake)
	row("TTFB", t.TTFB)
	row("Transfer", t.Transfer)
	row("Total", t.Total)
	if resp.Proto != "" {
		fmt.Fprintf(p.w, "%s %s\n", p.styles.Key.Render(fmt.Sprintf("%-13s", "Protocol")), resp.Proto)
	}
}

// body returns the body text to print. Pretty printing here never feeds
// back into the reported size.
func (p *Printer) body(resp protocol.Response, opts Options) (string, error) {
	if opts.Query != "" {
		if !gjson.ValidBytes(resp.Raw) {
			return "", fmt.Errorf("%w: body is not JSON", ErrNoMatch)
		}
		result := gjson.GetBytes(resp.Raw, opts.Query)
		if !result.Exists() {
			return "", fmt.Errorf("%w: %s", ErrNoMatch, opts.Query)
		}
		if result.Type == gjson.JSON {
			return p.highlight(string(pretty.Pretty([]byte(result.Raw))), "json"), nil
		}
		return result.String(), nil
	}

	if opts.Raw {
		return string(resp.Raw), nil
	}

	if _, isText := resp.Data.(string); !isText && len(resp.Raw) > 0 {
		return p.highlight(string(pretty.Pretty(resp.Raw)), "json"), nil
	}
	return p.highlight(string(resp.Raw), detectLexer(resp.ContentType)), nil
}

func (p *Printer) highlight(src, lexerName string) string {
	if !p.color || lexerName == "text" {
		return src
	}
	return highlight(src, lexerName)
}

// History prints one line per entry, newest first, numbered from 1.
func (p *Printer) History(entries []request.Record) {
	s := p.styles
	if len(entries) == 0 {
		fmt.Fprintln(p.w, s.Muted.Render("No requests yet"))
		return
	}
	for i, e := range entries {
		label := e.URL
		if e.Name != "" {
			label = e.Name + "  " + s.Muted.Render(e.URL)
		}
		fmt.Fprintf(p.w, "%3d  %s  %s  %s  %s\n",
			i+1,
			s.Method(e.Method).Render(fmt.Sprintf("%-6s", e.Method)),
			label,
			s.Muted.Render(humanize.Time(e.Time())),
			s.Muted.Render(e.ID),
		)
	}
}

// Record prints the full stored request.
func (p *Printer) Record(rec request.Record) {
	s := p.styles
	fmt.Fprintf(p.w, "%s %s\n", s.Method(rec.Method).Render(string(rec.Method)), s.URL.Render(rec.URL))
	fmt.Fprintf(p.w, "%s %s\n", s.Key.Render("ID:"), rec.ID)
	fmt.Fprintf(p.w, "%s %s\n", s.Key.Render("Sent:"), rec.Time().Format("2006-01-02 15:04:05"))
	if rec.Name != "" {
		fmt.Fprintf(p.w, "%s %s\n", s.Key.Render("Name:"), rec.Name)
	}
	if len(rec.Headers) > 0 {
		fmt.Fprintln(p.w)
		p.headers(rec.Headers)
	}
	if rec.Body != "" {
		fmt.Fprintln(p.w)
		lexer := "text"
		if gjson.Valid(rec.Body) {
			lexer = "json"
		}
		fmt.Fprintln(p.w, p.highlight(request.FormatBody(rec.Body), lexer))
	}
}

// FormatSize renders a byte count for display.
func FormatSize(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

// detectLexer maps Content-Type to a chroma lexer name.
func detectLexer(contentType string) string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "json"):
		return "json"
	case strings.Contains(ct, "html"):
		return "html"
	case strings.Contains(ct, "xml"):
		return "xml"
	case ct == "text/css":
		return "css"
	case strings.Contains(ct, "javascript"):
		return "javascript"
	default:
		return "text"
	}
}

// highlight applies chroma syntax highlighting to source code.
func highlight(source, lexerName string) string {
	lexer := lexers.Get(lexerName)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromastyles.Get("monokai")
	if style == nil {
		style = chromastyles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, source)
	if err != nil {
		return source
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return source
	}
	return buf.String()
}
