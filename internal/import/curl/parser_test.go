package curl

import (
	"errors"
	"testing"

	"github.com/sadopc/apitester/internal/core/request"
	"github.com/sadopc/apitester/internal/export"
)

func TestParse_SimpleGET(t *testing.T) {
	rec, err := Parse(`curl https://api.example.com/users`)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Method != request.MethodGet {
		t.Errorf("expected GET, got %s", rec.Method)
	}
	if rec.URL != "https://api.example.com/users" {
		t.Errorf("expected URL, got %s", rec.URL)
	}
	if rec.ID == "" || rec.Timestamp == 0 {
		t.Errorf("record should be stamped: %+v", rec)
	}
}

func TestParse_POST_WithBody(t *testing.T) {
	rec, err := Parse(`curl -X POST -H 'Content-Type: application/json' -d '{"name":"test"}' https://api.example.com/users`)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Method != request.MethodPost {
		t.Errorf("expected POST, got %s", rec.Method)
	}
	if rec.Body != `{"name":"test"}` {
		t.Errorf("unexpected body: %s", rec.Body)
	}
	if rec.Headers["Content-Type"] != "application/json" {
		t.Errorf("expected Content-Type header, got %v", rec.Headers)
	}
}

func TestParse_BasicAuth(t *testing.T) {
	rec, err := Parse(`curl -u admin:secret https://api.example.com/private`)
	if err != nil {
		t.Fatal(err)
	}
	if got := rec.Headers["Authorization"]; got != "Basic YWRtaW46c2VjcmV0" {
		t.Errorf("Authorization = %q", got)
	}
}

func TestParse_MultipleHeaders(t *testing.T) {
	rec, err := Parse(`curl -H "Accept: application/json" -H "Authorization: Bearer token123" -A agent/1 https://api.example.com`)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{
		"Accept":        "application/json",
		"Authorization": "Bearer token123",
		"User-Agent":    "agent/1",
	}
	for k, v := range want {
		if rec.Headers[k] != v {
			t.Errorf("header %s = %q, want %q", k, rec.Headers[k], v)
		}
	}
}

func TestParse_ImplicitPOST(t *testing.T) {
	rec, err := Parse(`curl -d 'data=value' https://api.example.com`)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Method != request.MethodPost {
		t.Errorf("expected implicit POST, got %s", rec.Method)
	}
}

func TestParse_LineContinuation(t *testing.T) {
	input := "curl \\\n  -X put \\\n  -H 'Content-Type: text/plain' \\\n  -d 'hello' \\\n  https://example.com"
	rec, err := Parse(input)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Method != request.MethodPut {
		t.Errorf("expected PUT, got %s", rec.Method)
	}
	if rec.URL != "https://example.com" {
		t.Errorf("unexpected URL: %s", rec.URL)
	}
}

func TestParse_SkipsKnownFlags(t *testing.T) {
	rec, err := Parse(`curl --compressed -s -L -o out.txt --url https://example.com/file`)
	if err != nil {
		t.Fatal(err)
	}
	if rec.URL != "https://example.com/file" {
		t.Errorf("URL = %q", rec.URL)
	}
}

func TestParse_Errors(t *testing.T) {
	if _, err := Parse(""); !errors.Is(err, ErrEmpty) {
		t.Errorf("empty: %v", err)
	}
	if _, err := Parse("curl"); !errors.Is(err, ErrEmpty) {
		t.Errorf("bare curl: %v", err)
	}
	if _, err := Parse("curl -H 'Accept: */*'"); !errors.Is(err, ErrNoURL) {
		t.Errorf("no url: %v", err)
	}
	if _, err := Parse("curl ''"); !errors.Is(err, ErrNoURL) {
		t.Errorf("empty url: %v", err)
	}
	if _, err := Parse("curl -X TRACE https://example.com"); !errors.Is(err, request.ErrUnsupportedMethod) {
		t.Errorf("unsupported method: %v", err)
	}
}

func TestParse_RoundTripsExport(t *testing.T) {
	orig := request.New(request.MethodPatch, "https://api.example.com/users/1?x=1&y=2",
		map[string]string{"Content-Type": "application/json", "X-Note": "it's here"},
		`{"name":"O'Brien"}`)

	rec, err := Parse(export.AsCurl(orig))
	if err != nil {
		t.Fatal(err)
	}
	if rec.Method != orig.Method || rec.URL != orig.URL || rec.Body != orig.Body {
		t.Errorf("round trip = %+v, want %+v", rec, orig)
	}
	if len(rec.Headers) != len(orig.Headers) {
		t.Fatalf("headers = %v", rec.Headers)
	}
	for k, v := range orig.Headers {
		if rec.Headers[k] != v {
			t.Errorf("header %s = %q, want %q", k, rec.Headers[k], v)
		}
	}
}

func TestTokenize(t *testing.T) {
	tokens := tokenize(`curl -H 'Content-Type: application/json' -d '{"key":"val"}' "https://example.com" ''`)
	expected := []string{
		"curl",
		"-H",
		"Content-Type: application/json",
		"-d",
		`{"key":"val"}`,
		"https://example.com",
		"",
	}
	if len(tokens) != len(expected) {
		t.Fatalf("expected %d tokens, got %d: %q", len(expected), len(tokens), tokens)
	}
	for i := range expected {
		if tokens[i] != expected[i] {
			t.Errorf("token[%d] = %q, want %q", i, tokens[i], expected[i])
		}
	}
}
