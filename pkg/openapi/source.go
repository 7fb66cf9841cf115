package openapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SourceKind enumerates where a document can be read from.
type SourceKind string

const (
	SourceKindFile SourceKind = "file"
	SourceKindFS   SourceKind = "fs"
	SourceKindURL  SourceKind = "url"
)

// Source identifies the origin of an OpenAPI document.
type Source struct {
	kind     SourceKind
	location string
}

// Kind returns the loader modality.
func (s Source) Kind() SourceKind { return s.kind }

// Location returns the path or URL.
func (s Source) Location() string { return s.location }

func (s Source) String() string { return string(s.kind) + ":" + s.location }

// SourceFromFile points at a document on disk.
func SourceFromFile(path string) Source {
	return Source{kind: SourceKindFile, location: filepath.Clean(path)}
}

// SourceFromFS points at a document inside the loader's fs.FS.
func SourceFromFS(name string) Source {
	return Source{kind: SourceKindFS, location: name}
}

// SourceFromURL points at a remote document. HTTP loading must be enabled on
// the Loader.
func SourceFromURL(raw string) (Source, error) {
	if _, err := url.ParseRequestURI(raw); err != nil {
		return Source{}, fmt.Errorf("openapi: invalid URL %q: %w", raw, err)
	}
	return Source{kind: SourceKindURL, location: raw}, nil
}

// ParseSource maps a command line argument onto a Source: http(s) URLs are
// remote, everything else is a file path.
func ParseSource(raw string) (Source, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Source{}, errors.New("openapi: source is required")
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return SourceFromURL(raw)
	}
	return SourceFromFile(raw), nil
}

// Loader reads raw documents from files, an fs.FS or HTTP.
type Loader struct {
	fs      fs.FS
	http    *http.Client
	timeout time.Duration
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithFileSystem enables SourceFromFS sources.
func WithFileSystem(files fs.FS) LoaderOption {
	return func(l *Loader) {
		l.fs = files
	}
}

// WithHTTPClient enables remote sources using client.
func WithHTTPClient(client *http.Client) LoaderOption {
	return func(l *Loader) {
		l.http = client
	}
}

// WithHTTPFallback enables remote sources with a default client.
func WithHTTPFallback(timeout time.Duration) LoaderOption {
	return func(l *Loader) {
		l.timeout = timeout
		if l.http == nil {
			l.http = &http.Client{Timeout: timeout}
		}
	}
}

// NewLoader builds a Loader. Remote sources are disabled unless an HTTP
// option is supplied.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Load returns the raw bytes behind src.
func (l *Loader) Load(ctx context.Context, src Source) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if src.location == "" {
		return nil, errors.New("openapi loader: source location is required")
	}
	switch src.kind {
	case SourceKindFile:
		return os.ReadFile(src.location)
	case SourceKindFS:
		if l.fs == nil {
			return nil, errors.New("openapi loader: filesystem is not configured")
		}
		return fs.ReadFile(l.fs, src.location)
	case SourceKindURL:
		if l.http == nil {
			return nil, errors.New("openapi loader: http support disabled")
		}
		return l.fetch(ctx, src.location)
	default:
		return nil, fmt.Errorf("openapi loader: unsupported source kind %q", src.kind)
	}
}

func (l *Loader) fetch(ctx context.Context, location string) ([]byte, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openapi loader: fetch %s: %w", location, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("openapi loader: fetch %s: unexpected status %s", location, resp.Status)
	}
	return io.ReadAll(resp.Body)
}
