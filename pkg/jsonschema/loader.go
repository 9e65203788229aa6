package jsonschema

import (
	"context"
	"io/fs"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Loader fetches schema documents from files, fs.FS entries or URLs.
type Loader interface {
	Load(ctx context.Context, src Source) (Document, error)
}

// LoaderOptions configures how a Loader resolves sources.
type LoaderOptions struct {
	// FileSystem backs fs sources. Nil disables them.
	FileSystem fs.FS

	// HTTPClient enables URL sources with caller supplied transport settings.
	HTTPClient *http.Client

	// AllowHTTPFallback enables URL sources with a default client when no
	// HTTPClient is supplied.
	AllowHTTPFallback bool

	// RequestTimeout caps remote fetch durations.
	RequestTimeout time.Duration

	// MaxDocumentBytes rejects larger documents. Zero applies the default
	// of 5 MiB.
	MaxDocumentBytes int64

	// Cache keeps fetched documents by source for the loader's lifetime.
	Cache bool

	// Logger receives fetch events. The zero value discards them.
	Logger zerolog.Logger
}

// LoaderOption mutates LoaderOptions prior to construction.
type LoaderOption func(*LoaderOptions)

// WithFileSystem injects an fs.FS for fs sources.
func WithFileSystem(files fs.FS) LoaderOption {
	return func(opts *LoaderOptions) {
		opts.FileSystem = files
	}
}

// WithHTTPClient injects a custom HTTP client for remote documents.
func WithHTTPClient(client *http.Client) LoaderOption {
	return func(opts *LoaderOptions) {
		opts.HTTPClient = client
	}
}

// WithHTTPFallback enables HTTP loading with a default client and timeout.
func WithHTTPFallback(timeout time.Duration) LoaderOption {
	return func(opts *LoaderOptions) {
		opts.AllowHTTPFallback = true
		opts.RequestTimeout = timeout
	}
}

// WithMaxDocumentBytes caps the size of a single document.
func WithMaxDocumentBytes(n int64) LoaderOption {
	return func(opts *LoaderOptions) {
		opts.MaxDocumentBytes = n
	}
}

// WithCache keeps fetched documents so repeated loads of one source, such as
// a definitions file referenced from many places, hit the network or disk
// once.
func WithCache() LoaderOption {
	return func(opts *LoaderOptions) {
		opts.Cache = true
	}
}

// WithLoaderLogger sets the logger for fetch events.
func WithLoaderLogger(log zerolog.Logger) LoaderOption {
	return func(opts *LoaderOptions) {
		opts.Logger = log
	}
}

// NewLoaderOptions applies options and returns the resulting configuration.
func NewLoaderOptions(options ...LoaderOption) LoaderOptions {
	cfg := LoaderOptions{Logger: zerolog.Nop()}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}
