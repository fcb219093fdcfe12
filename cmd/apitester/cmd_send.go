package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sadopc/apitester/internal/app"
	"github.com/sadopc/apitester/internal/core/request"
	"github.com/sadopc/apitester/internal/import/curl"
	"github.com/sadopc/apitester/internal/protocol"
	"github.com/sadopc/apitester/internal/ui/render"
)

// outputFlags control how a response is printed.
type outputFlags struct {
	include bool
	timing  bool
	raw     bool
	query   string
}

func (o *outputFlags) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.BoolVarP(&o.include, "include", "i", false, "Show response headers")
	f.BoolVar(&o.timing, "timing", false, "Show the timing breakdown")
	f.BoolVar(&o.raw, "raw", false, "Print the body exactly as received")
	f.StringVarP(&o.query, "query", "q", "", "Print only the value at this JSON path (gjson syntax)")
}

func (o *outputFlags) options() render.Options {
	return render.Options{Headers: o.include, Timing: o.timing, Raw: o.raw, Query: o.query}
}

func newSendCmd(g *globalFlags) *cobra.Command {
	var (
		method     string
		headers    []string
		data       string
		dataFile   string
		name       string
		formatBody bool
		noHistory  bool
		fromCurl   string
		out        outputFlags
	)

	cmd := &cobra.Command{
		Use:   "send [url]",
		Short: "Send a request and print the response",
		Example: `  apitester send https://jsonplaceholder.typicode.com/posts/1
  apitester send -X POST -d '{"title":"x"}' https://jsonplaceholder.typicode.com/posts
  apitester send -H "Authorization: Bearer t" --query data.id https://api.example.com/me
  apitester send --from-curl "curl -X POST -d '{}' https://api.example.com/items"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if fromCurl != "" {
				if len(args) > 0 {
					return errors.New("a URL argument cannot be combined with --from-curl")
				}
				line := fromCurl
				if line == "-" {
					b, err := readInput(cmd, "-")
					if err != nil {
						return err
					}
					line = string(b)
				}
				rec, err := curl.Parse(line)
				if err != nil {
					return err
				}
				rec.Name = name
				return send(cmd, g, rec, noHistory, out.options())
			}
			if len(args) == 0 {
				return errors.New("a URL is required")
			}

			m, err := request.ParseMethod(method)
			if err != nil {
				return err
			}

			body := data
			if dataFile != "" {
				if data != "" {
					return errors.New("--data and --data-file are mutually exclusive")
				}
				b, err := readInput(cmd, dataFile)
				if err != nil {
					return err
				}
				body = string(b)
			}
			if formatBody {
				body = request.FormatBody(body)
			}

			hdrs, err := mergeHeaders(g.loadConfig().DefaultHeaders, headers)
			if err != nil {
				return err
			}

			rec := request.New(m, args[0], hdrs, body)
			rec.Name = name
			return send(cmd, g, rec, noHistory, out.options())
		},
	}

	f := cmd.Flags()
	f.StringVarP(&method, "method", "X", "GET", "HTTP method: GET, POST, PUT, DELETE or PATCH")
	f.StringArrayVarP(&headers, "header", "H", nil, `Request header "Name: value" (repeatable, empty value removes a default)`)
	f.StringVarP(&data, "data", "d", "", "Request body")
	f.StringVar(&dataFile, "data-file", "", "Read the request body from a file (- for stdin)")
	f.StringVar(&name, "name", "", "Label stored with the history entry")
	f.BoolVar(&formatBody, "format-body", false, "Pretty-print a JSON body before sending")
	f.BoolVar(&noHistory, "no-history", false, "Do not record this request in history")
	f.StringVar(&fromCurl, "from-curl", "", "Build the request from a curl command line (- for stdin)")
	out.bind(cmd)

	return cmd
}

func send(cmd *cobra.Command, g *globalFlags, rec request.Record, noHistory bool, opts render.Options) error {
	if rec.Body != "" && !rec.Method.HasBody() {
		g.logger(cmd).Debug().Str("method", string(rec.Method)).Msg("request body given for a method that normally has none")
	}

	rt, err := g.open(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	var sendOpts []app.SendOption
	if noHistory {
		sendOpts = append(sendOpts, app.WithoutHistory())
	}
	res, err := rt.Send(cmd.Context(), rec, sendOpts...)
	if err != nil {
		return err
	}
	return printResult(g.printer(cmd), rec, res, opts)
}

// mergeHeaders overlays "Name: value" lines on defaults. Names match case
// insensitively; an empty value drops the header.
func mergeHeaders(defaults map[string]string, lines []string) (map[string]string, error) {
	out := make(map[string]string, len(defaults)+len(lines))
	for k, v := range defaults {
		out[k] = v
	}
	for _, line := range lines {
		name, value, err := request.ParseHeader(line)
		if err != nil {
			return nil, err
		}
		for k := range out {
			if strings.EqualFold(k, name) {
				delete(out, k)
			}
		}
		if value != "" {
			out[name] = value
		}
	}
	return out, nil
}

// printResult renders res and maps a transport failure to its exit code.
func printResult(p *render.Printer, rec request.Record, res protocol.Result, opts render.Options) error {
	if err := p.Response(rec, res.Response, opts); err != nil {
		return err
	}
	if !res.OK() {
		return &exitCodeError{code: exitTransport, err: res.Err, silent: true}
	}
	return nil
}

// readInput reads path, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return b, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return b, nil
}
