// Package source acquires generator inputs: raw declaration text or an
// OpenAPI document, from a filesystem path or an http/https URL.
// Acquisition is a strictly sequential prerequisite of the generation
// passes; a failed fetch aborts the run before any output is written.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	openapi2 "github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"
)

// ErrorCode categorizes acquisition errors for clearer handling and messaging.
type ErrorCode string

const (
	InputError      ErrorCode = "InputError"
	NetworkError    ErrorCode = "NetworkError"
	ParseError      ErrorCode = "ParseError"
	ValidationError ErrorCode = "ValidationError"
	ConversionError ErrorCode = "ConversionError"
)

// SourceError is a structured acquisition error with the offending location.
type SourceError struct {
	Code     ErrorCode
	Message  string
	Location string // file path or URL
	Cause    error
}

func (e *SourceError) Error() string { return e.Message }
func (e *SourceError) Unwrap() error { return e.Cause }

// Settings configures transport behavior.
type Settings struct {
	// HTTPTimeout bounds each HTTP request.
	HTTPTimeout time.Duration
	// MaxRetries for transient HTTP failures (>=500, 429, or network errors).
	MaxRetries int
	// BackoffBase is the base delay for exponential backoff.
	BackoffBase time.Duration
}

// DefaultSettings returns recommended defaults.
func DefaultSettings() Settings {
	return Settings{
		HTTPTimeout: 10 * time.Second,
		MaxRetries:  3,
		BackoffBase: 200 * time.Millisecond,
	}
}

// Option mutates Settings.
type Option func(*Settings)

func WithHTTPTimeout(d time.Duration) Option { return func(s *Settings) { s.HTTPTimeout = d } }
func WithMaxRetries(n int) Option            { return func(s *Settings) { s.MaxRetries = n } }
func WithBackoffBase(d time.Duration) Option { return func(s *Settings) { s.BackoffBase = d } }

// LoadText reads raw text from a filesystem path or an http/https URL.
// Used for pre-built declaration files.
func LoadText(ctx context.Context, input string, opts ...Option) ([]byte, error) {
	settings, u, isURL, err := classify(input, opts)
	if err != nil {
		return nil, err
	}
	if isURL {
		raw, ferr := fetchWithRetry(ctx, u.String(), settings)
		if ferr != nil {
			return nil, &SourceError{Code: NetworkError, Message: fmt.Sprintf("fetch %s: %v", input, ferr), Location: input, Cause: ferr}
		}
		return raw, nil
	}
	abs, aerr := filepath.Abs(input)
	if aerr != nil {
		return nil, &SourceError{Code: InputError, Message: fmt.Sprintf("resolve path: %v", aerr), Location: input, Cause: aerr}
	}
	raw, rerr := os.ReadFile(abs)
	if rerr != nil {
		return nil, &SourceError{Code: InputError, Message: fmt.Sprintf("read file %s: %v", abs, rerr), Location: abs, Cause: rerr}
	}
	return raw, nil
}

// LoadDocument reads, validates, and returns an OpenAPI v3 document from a
// filesystem path or an http/https URL. Swagger v2.0 input is converted to
// v3 via kin-openapi openapi2conv before validation.
func LoadDocument(ctx context.Context, input string, opts ...Option) (*openapi3.T, error) {
	settings, u, isURL, err := classify(input, opts)
	if err != nil {
		return nil, err
	}

	location := input
	var raw []byte
	if isURL {
		raw, err = fetchWithRetry(ctx, u.String(), settings)
		if err != nil {
			return nil, &SourceError{Code: NetworkError, Message: fmt.Sprintf("fetch %s: %v", input, err), Location: input, Cause: err}
		}
	} else {
		abs, aerr := filepath.Abs(input)
		if aerr != nil {
			return nil, &SourceError{Code: InputError, Message: fmt.Sprintf("resolve path: %v", aerr), Location: input, Cause: aerr}
		}
		location = abs
		raw, err = os.ReadFile(abs)
		if err != nil {
			return nil, &SourceError{Code: InputError, Message: fmt.Sprintf("read file %s: %v", abs, err), Location: abs, Cause: err}
		}
	}

	version, derr := detectSpecVersion(raw)
	if derr != nil {
		return nil, &SourceError{Code: ParseError, Message: derr.Error(), Location: location, Cause: derr}
	}

	var doc *openapi3.T
	switch version {
	case 3:
		loader := newLoader(settings, !isURL)
		if isURL {
			doc, err = loader.LoadFromURI(u)
		} else {
			doc, err = loader.LoadFromFile(location)
		}
		if err != nil {
			return nil, &SourceError{Code: ParseError, Message: err.Error(), Location: location, Cause: err}
		}
	case 2:
		doc, err = convertV2ToV3(raw)
		if err != nil {
			return nil, &SourceError{Code: ConversionError, Message: fmt.Sprintf("convert v2 to v3: %v", err), Location: location, Cause: err}
		}
	default:
		return nil, &SourceError{Code: ParseError, Message: "source: unknown or unsupported OpenAPI/Swagger version", Location: location}
	}

	if err := doc.Validate(ctx); err != nil {
		return nil, &SourceError{Code: ValidationError, Message: err.Error(), Location: location, Cause: err}
	}
	return doc, nil
}

func classify(input string, opts []Option) (Settings, *url.URL, bool, error) {
	if strings.TrimSpace(input) == "" {
		return Settings{}, nil, false, &SourceError{Code: InputError, Message: "source: input is empty"}
	}
	settings := DefaultSettings()
	for _, opt := range opts {
		opt(&settings)
	}
	u, uerr := url.Parse(input)
	isURL := uerr == nil && u.Scheme != "" && u.Host != ""
	if isURL {
		scheme := strings.ToLower(u.Scheme)
		if scheme != "http" && scheme != "https" {
			return Settings{}, nil, false, &SourceError{Code: InputError, Message: fmt.Sprintf("source: unsupported URL scheme %q (only http/https allowed)", scheme), Location: input}
		}
	}
	return settings, u, isURL, nil
}

func newLoader(settings Settings, rootIsFile bool) *openapi3.Loader {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = true
	client := &http.Client{Timeout: settings.HTTPTimeout}
	loader.ReadFromURIFunc = func(l *openapi3.Loader, uri *url.URL) ([]byte, error) {
		switch strings.ToLower(uri.Scheme) {
		case "", "file":
			if !rootIsFile {
				return nil, fmt.Errorf("blocked file ref: %s", uri.String())
			}
			path := uri.Path
			if path == "" {
				path = uri.Opaque
			}
			return os.ReadFile(path)
		case "http", "https":
			req, err := http.NewRequest("GET", uri.String(), nil)
			if err != nil {
				return nil, err
			}
			resp, err := client.Do(req)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close()
			if resp.StatusCode >= 400 {
				return nil, fmt.Errorf("http %d: %s", resp.StatusCode, uri.String())
			}
			return io.ReadAll(resp.Body)
		default:
			return nil, fmt.Errorf("unsupported ref scheme: %s", uri.Scheme)
		}
	}
	return loader
}

// detectSpecVersion returns 3 for OpenAPI v3, 2 for Swagger v2, else error.
func detectSpecVersion(data []byte) (int, error) {
	var root map[string]any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return 0, fmt.Errorf("parse document: %w", err)
	}
	if v, ok := root["openapi"]; ok {
		if s, _ := v.(string); strings.HasPrefix(strings.TrimSpace(s), "3.") {
			return 3, nil
		}
	}
	if v, ok := root["swagger"]; ok {
		if s, _ := v.(string); strings.HasPrefix(strings.TrimSpace(s), "2.") {
			return 2, nil
		}
	}
	return 0, fmt.Errorf("source: missing or unknown version (expected 'openapi: 3.x' or 'swagger: 2.0')")
}

func convertV2ToV3(data []byte) (*openapi3.T, error) {
	var v2 openapi2.T
	if err := yaml.Unmarshal(data, &v2); err != nil {
		return nil, err
	}
	return openapi2conv.ToV3(&v2)
}

func fetchWithRetry(ctx context.Context, rawURL string, settings Settings) ([]byte, error) {
	client := &http.Client{Timeout: settings.HTTPTimeout}
	var lastErr error
	backoff := settings.BackoffBase
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	attempts := settings.MaxRetries
	if attempts <= 0 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err == nil && resp != nil && resp.StatusCode < 300 {
			defer resp.Body.Close()
			return io.ReadAll(resp.Body)
		}
		if err != nil {
			lastErr = err
		} else {
			defer resp.Body.Close()
			if resp.StatusCode >= 500 || resp.StatusCode == 429 {
				lastErr = fmt.Errorf("transient http error %d", resp.StatusCode)
			} else {
				body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
				return nil, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
			}
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	if lastErr == nil {
		lastErr = errors.New("fetch failed")
	}
	return nil, lastErr
}
