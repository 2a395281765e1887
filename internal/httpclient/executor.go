package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// maxBodyBytes caps how much of a response body is buffered.
const maxBodyBytes = 16 << 20

// Observer receives one call per executed request. status is 0 when the
// request never produced a response.
type Observer func(endpoint, method string, status int, elapsed time.Duration)

// ErrorHandler turns a non-2xx response into a venue-specific error.
type ErrorHandler func(status int, body []byte) error

// StatusError is returned for non-2xx responses when no ErrorHandler applies.
type StatusError struct {
	Status int
	Body   []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Status, truncate(e.Body, 256))
}

// TransportError wraps a failure that happened before a response was read
// (DNS, connection reset, timeout, context cancellation).
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Executor executes HTTP requests exactly once and hands back the raw body.
// Decoding is left to the caller so venues can apply their own schema rules.
type Executor struct {
	logger       *zap.Logger
	http         *http.Client
	venueTag     string
	errorHandler ErrorHandler
	observe      Observer
}

// New creates an Executor. errorHandler is called on non-2xx responses to produce a
// venue-specific error. If nil, a *StatusError is returned.
func New(
	logger *zap.Logger,
	httpClient *http.Client,
	venueTag string,
	errorHandler ErrorHandler,
) *Executor {
	return &Executor{
		logger:       logger,
		http:         httpClient,
		venueTag:     venueTag,
		errorHandler: errorHandler,
	}
}

// WithObserver installs a per-request observer (typically metrics).
func (e *Executor) WithObserver(o Observer) *Executor {
	e.observe = o
	return e
}

// Do executes req with the executor's default error handler.
func (e *Executor) Do(ctx context.Context, req *http.Request, endpoint string) ([]byte, error) {
	return e.DoWith(ctx, req, endpoint, e.errorHandler)
}

// DoWith executes req once. onError overrides the default handler for this call.
func (e *Executor) DoWith(ctx context.Context, req *http.Request, endpoint string, onError ErrorHandler) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &TransportError{Method: req.Method, URL: redactURL(req), Err: err}
	}

	start := time.Now()
	resp, err := e.http.Do(req.WithContext(ctx))
	if err != nil {
		err = stripURL(err)
		e.record(endpoint, req.Method, 0, time.Since(start))
		e.logger.Warn(e.venueTag+".http_failed",
			zap.String("endpoint", endpoint),
			zap.String("method", req.Method),
			zap.Error(err))
		return nil, &TransportError{Method: req.Method, URL: redactURL(req), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	elapsed := time.Since(start)
	e.record(endpoint, req.Method, resp.StatusCode, elapsed)
	if err != nil {
		e.logger.Warn(e.venueTag+".read_failed",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.Error(err))
		return nil, &TransportError{Method: req.Method, URL: redactURL(req), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		e.logger.Warn(e.venueTag+".non_2xx",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.Duration("latency", elapsed),
			zap.String("body", truncate(body, 512)))
		if onError != nil {
			return nil, onError(resp.StatusCode, body)
		}
		return nil, &StatusError{Status: resp.StatusCode, Body: body}
	}

	e.logger.Debug(e.venueTag+".http_success",
		zap.String("endpoint", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", elapsed))

	return body, nil
}

func (e *Executor) record(endpoint, method string, status int, elapsed time.Duration) {
	if e.observe != nil {
		e.observe(endpoint, method, status, elapsed)
	}
}

// redactURL drops the query string and path parameters, which may carry session identifiers.
func redactURL(req *http.Request) string {
	if req.URL == nil {
		return ""
	}
	u := *req.URL
	u.RawQuery = ""
	u.RawPath = ""
	if before, _, found := strings.Cut(u.Path, ";"); found {
		u.Path = before
	}
	return u.String()
}

// stripURL drops the *url.Error wrapper, whose message repeats the full request URL.
func stripURL(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return ue.Err
	}
	return err
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
