package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/rybkr/argroute/internal/cli"
	"github.com/rybkr/argroute/internal/progress"
)

const defaultHTTPTimeout = 30 * time.Second

// httpCommand returns the "http <method>" command. The exit status is OK for
// 1xx-3xx responses and Fail otherwise.
func httpCommand(method string) *cli.Command {
	name := strings.ToLower(method)
	hasBody := method == http.MethodPost
	return &cli.Command{
		Name: "http " + name,
		Description: fmt.Sprintf(`Send an HTTP %s request and print the response body.

	The exit status is non-zero when the server answers with a 4xx or 5xx status.`, method),
		Usage: fmt.Sprintf("%s http %s [flags] <url>", appName, name),
		Flags: func(fs *pflag.FlagSet) {
			fs.DurationP("timeout", "t", defaultHTTPTimeout, "give up after this long")
			fs.StringArrayP("header", "H", nil, `extra request header as "Name: value"`)
			fs.BoolP("include", "i", false, "print the status line and response headers")
			if hasBody {
				fs.StringP("data", "d", "", "request body; @file reads it from a file and @- from stdin")
			}
		},
		Run: func(inv *cli.Invocation) (cli.Result, error) {
			return doHTTP(inv, method)
		},
	}
}

func doHTTP(inv *cli.Invocation, method string) (cli.Result, error) {
	args := inv.Positional()
	if len(args) != 1 {
		return cli.Result{}, errors.New("expected exactly one URL")
	}
	url := args[0]
	if !strings.Contains(url, "://") {
		url = "http://" + url
	}

	timeout, _ := inv.Flags.GetDuration("timeout")
	headers, _ := inv.Flags.GetStringArray("header")
	include, _ := inv.Flags.GetBool("include")

	var body io.Reader
	if data, err := inv.Flags.GetString("data"); err == nil && data != "" {
		body, err = requestBody(data)
		if err != nil {
			return cli.Result{}, err
		}
	}

	ctx, cancel := context.WithTimeout(inv.Context, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return cli.Result{}, err
	}
	for _, h := range headers {
		k, v, ok := strings.Cut(h, ":")
		if !ok {
			return cli.Result{}, fmt.Errorf("invalid header %q: want \"Name: value\"", h)
		}
		req.Header.Add(strings.TrimSpace(k), strings.TrimSpace(v))
	}

	spin := progress.New(inv.Stderr, method+" "+url)
	spin.Start()
	resp, err := http.DefaultClient.Do(req) // #nosec G107 -- the URL is the user's argument
	spin.Stop()
	if err != nil {
		return cli.Result{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	inv.Logger.Debug("HTTP response", "method", method, "url", url, "status", resp.StatusCode)

	if include {
		inv.Printf("%s %s\n", resp.Proto, resp.Status)
		keys := make([]string, 0, len(resp.Header))
		for k := range resp.Header {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			for _, v := range resp.Header[k] {
				inv.Printf("%s: %s\n", k, v)
			}
		}
		inv.Println()
	}
	if _, err := io.Copy(inv.Stdout, resp.Body); err != nil {
		return cli.Result{}, fmt.Errorf("reading response: %w", err)
	}
	return cli.Bool(resp.StatusCode < http.StatusBadRequest), nil
}

func requestBody(data string) (io.Reader, error) {
	path, ok := strings.CutPrefix(data, "@")
	switch {
	case !ok:
		return strings.NewReader(data), nil
	case path == "-":
		return os.Stdin, nil
	default:
		f, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return strings.NewReader(string(f)), nil
	}
}
