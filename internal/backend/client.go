// Package backend is the REST client for the Attendo backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/m3rciful/attendobot/core/httpx"
	"github.com/m3rciful/attendobot/core/logger"
	"github.com/pkg/errors"
)

const (
	pathToken        = "/api/token/"
	pathTokenRefresh = "/api/token/refresh/"
	pathSubjects     = "/api/core/subjects/"
	pathUpload       = "/api/core/upload/"
	pathGenerate     = "/api/core/generate-ai-content/"
	pathNewCards     = "/api/core/flashcards/new-cards/"
	pathDueCards     = "/api/core/flashcards/due-reviews/"
	pathQuizzes      = "/api/core/all-quizzes/"

	// maxErrorBody bounds how much of a failed response is read for its reason.
	maxErrorBody = 64 << 10

	headerRequestID = "X-Request-ID"
)

// Options configures a Client.
type Options struct {
	BaseURL string
	// HTTPClient overrides the client built from Timeout and Retries.
	HTTPClient *http.Client
	Timeout    time.Duration
	// Retries applies to idempotent requests only.
	Retries int
}

// Client talks to the Attendo backend. It is safe for concurrent use.
type Client struct {
	base *url.URL
	http *http.Client
}

// New validates opts and builds a Client.
func New(opts Options) (*Client, error) {
	raw := strings.TrimSpace(opts.BaseURL)
	if raw == "" {
		return nil, errors.New("backend: base url is required")
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "backend: parse base url")
	}
	if (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, errors.Errorf("backend: base url %q must be an absolute http(s) url", raw)
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = httpx.NewClient(httpx.Options{
			Timeout:               opts.Timeout,
			ResponseHeaderTimeout: opts.Timeout,
			Retries:               opts.Retries,
			IdempotentOnly:        true,
		})
	}
	return &Client{base: base, http: hc}, nil
}

// BaseURL returns the configured backend root.
func (c *Client) BaseURL() string { return c.base.String() }

func (c *Client) endpoint(path string) string {
	u := *c.base
	u.Path = strings.TrimRight(c.base.Path, "/") + path
	return u.String()
}

type call struct {
	op          string
	method      string
	path        string
	token       string
	body        io.Reader
	contentType string
}

// do executes the call. Transport failures come back as *TransportError;
// any response, successful or not, is returned for the caller to inspect.
func (c *Client) do(ctx context.Context, cl call) (*http.Response, error) {
	rid := uuid.NewString()
	ctx = logger.WithRequestID(ctx, rid)
	req, err := http.NewRequestWithContext(ctx, cl.method, c.endpoint(cl.path), cl.body)
	if err != nil {
		return nil, errors.Wrapf(err, "backend: build %s request", cl.op)
	}
	req.Header.Set(headerRequestID, rid)
	req.Header.Set("Accept", "application/json")
	if cl.contentType != "" {
		req.Header.Set("Content-Type", cl.contentType)
	}
	if cl.token != "" {
		req.Header.Set("Authorization", "Bearer "+cl.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	attrs := []slog.Attr{
		slog.String("op", cl.op),
		slog.String("method", cl.method),
		slog.String("path", cl.path),
		slog.Duration("duration", logger.Took(start)),
	}
	if err != nil {
		terr := &TransportError{Op: cl.op, Err: err}
		logger.Warn(ctx, "backend", "call.fail", append(attrs,
			slog.String("error_kind", terr.Kind()),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)...)
		return nil, terr
	}

	attrs = append(attrs, slog.Int("http_code", resp.StatusCode))
	if success(resp.StatusCode) {
		logger.Debug(ctx, "backend", "call.ok", attrs...)
	} else {
		logger.Warn(ctx, "backend", "call.rejected", attrs...)
	}
	return resp, nil
}

func (c *Client) doJSON(ctx context.Context, op, method, path, token string, in any) (*http.Response, error) {
	cl := call{op: op, method: method, path: path, token: token}
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, errors.Wrapf(err, "backend: encode %s", op)
		}
		cl.body = bytes.NewReader(payload)
		cl.contentType = "application/json"
	}
	return c.do(ctx, cl)
}

func success(status int) bool {
	return status >= 200 && status < 300
}

// decode reads a successful JSON body into out.
func decode(resp *http.Response, op string, out any) error {
	defer resp.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "backend: decode %s response", op)
	}
	return nil
}

// failure drains a non-2xx response and returns its status and reason.
func failure(resp *http.Response) (int, string) {
	defer resp.Body.Close()
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return resp.StatusCode, reasonFrom(data)
}

// reasonFrom pulls "error" (or "detail") out of an error body.
func reasonFrom(data []byte) string {
	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil {
		return UnknownReason
	}
	if r := body.Error.text(); r != "" {
		return r
	}
	if r := body.Detail.text(); r != "" {
		return r
	}
	return UnknownReason
}

// rawReason accepts a string or any other JSON value as an error reason.
type rawReason json.RawMessage

func (r *rawReason) UnmarshalJSON(data []byte) error {
	*r = append((*r)[:0], data...)
	return nil
}

func (r rawReason) text() string {
	if len(r) == 0 || string(r) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(r, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, r); err != nil {
		return ""
	}
	return buf.String()
}
