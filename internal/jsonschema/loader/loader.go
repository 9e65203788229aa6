// Package loader reads schema and OpenAPI documents from disk, an fs.FS or
// http(s) URLs for the public jsonschema.Loader interface.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	pkgjsonschema "github.com/goliatone/go-formschema/pkg/jsonschema"
)

const defaultMaxDocumentBytes = int64(5 << 20)

// ErrTooLarge is returned for documents above the configured size cap.
var ErrTooLarge = errors.New("jsonschema loader: document too large")

// Loader implements pkgjsonschema.Loader by delegating to file, fs.FS, or HTTP
// strategies.
type Loader struct {
	fs       fs.FS
	http     *http.Client
	timeout  time.Duration
	maxBytes int64
	log      zerolog.Logger

	cacheOn bool
	mu      sync.Mutex
	cache   map[string][]byte
}

var _ pkgjsonschema.Loader = (*Loader)(nil)

// New constructs a Loader from pre-resolved options.
func New(options pkgjsonschema.LoaderOptions) pkgjsonschema.Loader {
	timeout := options.RequestTimeout

	var httpClient *http.Client
	switch {
	case options.HTTPClient != nil:
		clone := *options.HTTPClient
		if timeout > 0 && clone.Timeout == 0 {
			clone.Timeout = timeout
		}
		httpClient = &clone
	case options.AllowHTTPFallback:
		httpClient = &http.Client{Timeout: timeout}
	}

	maxBytes := options.MaxDocumentBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxDocumentBytes
	}
	l := &Loader{
		fs:       options.FileSystem,
		http:     httpClient,
		timeout:  timeout,
		maxBytes: maxBytes,
		log:      options.Logger,
		cacheOn:  options.Cache,
	}
	if l.cacheOn {
		l.cache = make(map[string][]byte)
	}
	return l
}

// Load fetches the document behind src. Cached documents are returned
// without touching the source again.
func (l *Loader) Load(ctx context.Context, src pkgjsonschema.Source) (pkgjsonschema.Document, error) {
	if src == nil {
		return pkgjsonschema.Document{}, errors.New("jsonschema loader: source is nil")
	}
	if err := ctx.Err(); err != nil {
		return pkgjsonschema.Document{}, err
	}

	key := string(src.Kind()) + ":" + src.Location()
	if data, ok := l.cached(key); ok {
		l.log.Debug().Str("source", src.Location()).Msg("schema document cache hit")
		return pkgjsonschema.NewDocument(src, data)
	}

	var (
		data []byte
		err  error
	)
	start := time.Now()
	switch src.Kind() {
	case pkgjsonschema.SourceKindFile:
		data, err = l.readFile(src.Location())
	case pkgjsonschema.SourceKindFS:
		data, err = l.readFS(src.Location())
	case pkgjsonschema.SourceKindURL:
		if l.http == nil {
			return pkgjsonschema.Document{}, errors.New("jsonschema loader: http support disabled")
		}
		data, err = l.fetch(ctx, src.Location())
	default:
		err = fmt.Errorf("jsonschema loader: unsupported source kind %q", src.Kind())
	}
	if err != nil {
		l.log.Debug().Err(err).Str("source", src.Location()).Msg("schema document load failed")
		return pkgjsonschema.Document{}, err
	}
	l.log.Debug().
		Str("source", src.Location()).
		Str("kind", string(src.Kind())).
		Int("bytes", len(data)).
		Dur("took", time.Since(start)).
		Msg("schema document loaded")

	l.store(key, data)
	return pkgjsonschema.NewDocument(src, data)
}

func (l *Loader) cached(key string) ([]byte, bool) {
	if !l.cacheOn {
		return nil, false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	data, ok := l.cache[key]
	return data, ok
}

func (l *Loader) store(key string, data []byte) {
	if !l.cacheOn {
		return
	}
	l.mu.Lock()
	l.cache[key] = data
	l.mu.Unlock()
}
