package request

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

// Method is an HTTP verb the request editor can produce.
type Method string

const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodPut    Method = "PUT"
	MethodDelete Method = "DELETE"
	MethodPatch  Method = "PATCH"
)

// Methods lists the supported verbs in editor order.
var Methods = []Method{MethodGet, MethodPost, MethodPut, MethodDelete, MethodPatch}

var (
	ErrEmptyURL          = errors.New("URL is required")
	ErrUnsupportedMethod = errors.New("unsupported method")
)

// ParseMethod normalizes s to a supported Method.
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToUpper(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedMethod, s)
	}
	return m, nil
}

// Valid reports whether m is one of Methods.
func (m Method) Valid() bool {
	for _, v := range Methods {
		if m == v {
			return true
		}
	}
	return false
}

// HasBody reports whether the editor treats a body as meaningful for m.
func (m Method) HasBody() bool {
	return m == MethodPost || m == MethodPut || m == MethodPatch
}

func (m Method) String() string { return string(m) }

// Record describes one request as composed by the user. It is the unit
// stored in history.
type Record struct {
	ID        string            `json:"id"`
	Method    Method            `json:"method"`
	URL       string            `json:"url"`
	Headers   map[string]string `json:"headers"`
	Body      string            `json:"body"`
	Timestamp int64             `json:"timestamp"`
	Name      string            `json:"name,omitempty"`
}

// New creates a record stamped with a fresh ID and the current time.
func New(method Method, url string, headers map[string]string, body string) Record {
	return newAt(method, url, headers, body, time.Now())
}

func newAt(method Method, url string, headers map[string]string, body string, now time.Time) Record {
	h := make(map[string]string, len(headers))
	for k, v := range headers {
		h[k] = v
	}
	return Record{
		ID:        newID(),
		Method:    method,
		URL:       url,
		Headers:   h,
		Body:      body,
		Timestamp: now.UnixMilli(),
	}
}

// newID returns a time-ordered unique identifier.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// Validate checks the record can be dispatched.
func (r Record) Validate() error {
	if strings.TrimSpace(r.URL) == "" {
		return ErrEmptyURL
	}
	if !r.Method.Valid() {
		return fmt.Errorf("%w: %q", ErrUnsupportedMethod, string(r.Method))
	}
	return nil
}

// Clone returns a copy of r sharing no mutable state.
func (r Record) Clone() Record {
	c := r
	if r.Headers != nil {
		c.Headers = make(map[string]string, len(r.Headers))
		for k, v := range r.Headers {
			c.Headers[k] = v
		}
	}
	return c
}

// Renew returns a copy of r with a new ID and timestamp, for replay.
func (r Record) Renew() Record {
	c := newAt(r.Method, r.URL, r.Headers, r.Body, time.Now())
	c.Name = r.Name
	return c
}

// Time returns the record timestamp as a time.Time.
func (r Record) Time() time.Time {
	return time.UnixMilli(r.Timestamp)
}

// FormatBody indents body when it is valid JSON and returns it unchanged
// otherwise.
func FormatBody(body string) string {
	if !gjson.Valid(body) {
		return body
	}
	// Width 0 puts every array element on its own line.
	out := pretty.PrettyOptions([]byte(body), &pretty.Options{Indent: "  "})
	return strings.TrimRight(string(out), "\n")
}

// ParseHeader splits a "Name: value" line.
func ParseHeader(line string) (string, string, error) {
	name, value, ok := strings.Cut(line, ":")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", "", fmt.Errorf("invalid header %q (want \"Name: value\")", line)
	}
	return name, strings.TrimSpace(value), nil
}
