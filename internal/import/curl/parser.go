package curl

import (
	"encoding/base64"
	"errors"
	"strings"

	"github.com/sadopc/apitester/internal/core/request"
)

var (
	ErrEmpty = errors.New("empty curl command")
	ErrNoURL = errors.New("no URL found in curl command")
)

// Parse turns a curl command line into a request record. It understands
// the flags that AsCurl emits plus the common ones people paste from
// browser dev tools.
func Parse(input string) (request.Record, error) {
	input = strings.TrimSpace(input)
	input = strings.ReplaceAll(input, "\\\r\n", " ")
	input = strings.ReplaceAll(input, "\\\n", " ")

	args := tokenize(input)
	if len(args) > 0 && strings.EqualFold(args[0], "curl") {
		args = args[1:]
	}
	if len(args) == 0 {
		return request.Record{}, ErrEmpty
	}

	var (
		method  string
		url     string
		body    string
		hasBody bool
		headers = make(map[string]string)
	)

	// value returns the argument following flag i, if any.
	value := func(i int) (string, bool) {
		if i+1 < len(args) {
			return args[i+1], true
		}
		return "", false
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "-X", "--request":
			if v, ok := value(i); ok {
				method = v
				i++
			}
		case "-H", "--header":
			if v, ok := value(i); ok {
				if name, val, err := request.ParseHeader(v); err == nil {
					headers[name] = val
				}
				i++
			}
		case "-d", "--data", "--data-raw", "--data-binary":
			if v, ok := value(i); ok {
				body = v
				hasBody = true
				i++
			}
		case "-u", "--user":
			if v, ok := value(i); ok {
				headers["Authorization"] = "Basic " + base64.StdEncoding.EncodeToString([]byte(v))
				i++
			}
		case "-A", "--user-agent":
			if v, ok := value(i); ok {
				headers["User-Agent"] = v
				i++
			}
		case "-o", "--output":
			i++
		case "--url":
			if v, ok := value(i); ok && url == "" {
				url = v
				i++
			}
		default:
			if !strings.HasPrefix(arg, "-") && url == "" {
				url = arg
			}
		}
	}

	if url == "" {
		return request.Record{}, ErrNoURL
	}

	m := request.MethodGet
	switch {
	case method != "":
		parsed, err := request.ParseMethod(method)
		if err != nil {
			return request.Record{}, err
		}
		m = parsed
	case hasBody:
		m = request.MethodPost
	}

	return request.New(m, url, headers, body), nil
}

// tokenize splits a shell command into words, honouring single quotes,
// double quotes and backslash escapes.
func tokenize(input string) []string {
	var tokens []string
	var current strings.Builder
	inSingle := false
	inDouble := false
	escaped := false
	started := false

	for _, r := range input {
		if escaped {
			current.WriteRune(r)
			escaped = false
			continue
		}

		if r == '\\' && !inSingle {
			escaped = true
			started = true
			continue
		}

		if r == '\'' && !inDouble {
			inSingle = !inSingle
			started = true
			continue
		}

		if r == '"' && !inSingle {
			inDouble = !inDouble
			started = true
			continue
		}

		if (r == ' ' || r == '\t' || r == '\n') && !inSingle && !inDouble {
			if started {
				tokens = append(tokens, current.String())
				current.Reset()
				started = false
			}
			continue
		}

		current.WriteRune(r)
		started = true
	}

	if started {
		tokens = append(tokens, current.String())
	}

	return tokens
}
