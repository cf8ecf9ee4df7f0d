package commands

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/deepnoodle-ai/pipeshell"
	"github.com/deepnoodle-ai/pipeshell/retry"
)

const httpHelp = `Fetch a URL and emit the response.

Usage: http [--header 'Name: value'] [--retries N] [--timeout SECONDS] <url>

JSON responses are decoded and top-level arrays are flattened into their
elements. Other responses become one string item per line. Throttling and
server errors are retried with backoff.`

const maxResponseBytes = 32 << 20

// HTTPCommand issues GET requests.
type HTTPCommand struct {
	client  *http.Client
	timeout time.Duration
	retries int
}

func NewHTTPCommand(opts Options) pipeshell.Command {
	timeout := opts.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPCommand{client: client, timeout: timeout, retries: opts.HTTPRetries}
}

func (c *HTTPCommand) Name() string {
	return "http"
}

func (c *HTTPCommand) Help() string {
	return httpHelp
}

func (c *HTTPCommand) Run(ctx pipeshell.Context, input pipeshell.Stream, args pipeshell.Args) (*pipeshell.Output, error) {
	url := args.StringOr("url", strings.Join(args.Positional(), ""))
	if url == "" {
		return nil, fmt.Errorf("a url is required")
	}
	retries, err := args.Int("retries", c.retries)
	if err != nil {
		return nil, err
	}
	timeout := c.timeout
	if v, ok := args.String("timeout"); ok {
		seconds, err := time.ParseDuration(v + "s")
		if err != nil || seconds <= 0 {
			return nil, fmt.Errorf("--timeout: expected a positive number of seconds, got %q", v)
		}
		timeout = seconds
	}
	headers := http.Header{}
	for _, h := range args.Strings("header") {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("--header: expected 'Name: value', got %q", h)
		}
		headers.Add(strings.TrimSpace(name), strings.TrimSpace(value))
	}

	items := func(yield func(pipeshell.Item, error) bool) {
		var body []byte
		var contentType string
		attempt := 0
		err := retry.Do(ctx, func() error {
			attempt++
			ctx.Logger().Debug("http request", "url", url, "attempt", attempt)
			var err error
			body, contentType, err = c.fetch(ctx, url, headers, timeout)
			return err
		}, retry.WithMaxRetries(retries))
		if err != nil {
			yield(nil, fmt.Errorf("GET %s: %w", url, err))
			return
		}

		var out []pipeshell.Item
		if strings.Contains(contentType, "json") {
			if out, err = decodeValues(body); err != nil {
				yield(nil, fmt.Errorf("GET %s: %w", url, err))
				return
			}
		} else {
			out = splitLines(body)
		}
		for _, item := range out {
			if !yield(item, nil) {
				return
			}
		}
	}
	return &pipeshell.Output{Items: items}, nil
}

func (c *HTTPCommand) fetch(ctx pipeshell.Context, url string, headers http.Header, timeout time.Duration) ([]byte, string, error) {
	reqCtx, cancel := contextWithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", retry.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	for name, values := range headers {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json, text/plain;q=0.9, */*;q=0.1")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		// The server was never heard from; another attempt may get through.
		return nil, "", retry.Transient(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, "", &retry.StatusError{Code: resp.StatusCode, Status: resp.Status}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, "", retry.Transient(fmt.Errorf("failed to read response body: %w", err))
	}
	return body, resp.Header.Get("Content-Type"), nil
}
