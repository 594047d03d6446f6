package router

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultExtension is the fragment file extension used when none is set.
const DefaultExtension = "html"

const defaultMaxFragmentBytes = 4 << 20

// ValidModuleName reports whether name can be used as a fragment locator
// segment: non-empty, a single path element and no traversal.
func ValidModuleName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) {
		return false
	}
	return fs.ValidPath(name)
}

func fragmentName(module, ext string) string {
	if ext == "" {
		ext = DefaultExtension
	}
	return module + "." + strings.TrimPrefix(ext, ".")
}

// HTTPFetcher loads fragments from <base>/modules/<name>.<ext>. Concurrent
// loads of the same module share one request.
type HTTPFetcher struct {
	base     string
	ext      string
	client   *http.Client
	maxBytes int64
	group    singleflight.Group
}

// HTTPOption configures an HTTPFetcher.
type HTTPOption func(*HTTPFetcher)

// WithHTTPClient overrides the default client (10s timeout).
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(f *HTTPFetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithExtension sets the fragment extension.
func WithExtension(ext string) HTTPOption {
	return func(f *HTTPFetcher) { f.ext = ext }
}

// WithMaxFragmentBytes caps the accepted body size.
func WithMaxFragmentBytes(n int64) HTTPOption {
	return func(f *HTTPFetcher) {
		if n > 0 {
			f.maxBytes = n
		}
	}
}

// NewHTTPFetcher validates base and returns a fetcher.
func NewHTTPFetcher(base string, opts ...HTTPOption) (*HTTPFetcher, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("router: invalid base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("router: base url %q must be http or https", base)
	}

	f := &HTTPFetcher{
		base:     strings.TrimRight(base, "/"),
		ext:      DefaultExtension,
		client:   &http.Client{Timeout: 10 * time.Second},
		maxBytes: defaultMaxFragmentBytes,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Fetch returns the fragment of module. A superseded caller stops waiting as
// soon as its ctx is cancelled; the shared request runs to completion for
// any other waiter.
func (f *HTTPFetcher) Fetch(ctx context.Context, module string) (string, error) {
	if !ValidModuleName(module) {
		return "", &RetrievalError{Module: module, Err: fmt.Errorf("invalid module name %q", module)}
	}

	ch := f.group.DoChan(module, func() (any, error) {
		return f.get(context.WithoutCancel(ctx), module)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", &RetrievalError{Module: module, Err: ctx.Err()}
	}
}

func (f *HTTPFetcher) get(ctx context.Context, module string) (string, error) {
	target, err := url.JoinPath(f.base, "modules", fragmentName(module, f.ext))
	if err != nil {
		return "", &RetrievalError{Module: module, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", &RetrievalError{Module: module, Err: err}
	}
	req.Header.Set("Accept", "text/html")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &RetrievalError{Module: module, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", &RetrievalError{Module: module, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return "", &RetrievalError{Module: module, Err: err}
	}
	if int64(len(body)) > f.maxBytes {
		return "", &RetrievalError{Module: module, Err: errors.New("fragment exceeds size limit")}
	}
	return string(body), nil
}

// DirFetcher reads fragments from <fsys>/<name>.<ext>.
type DirFetcher struct {
	fsys fs.FS
	ext  string
}

// NewDirFetcher returns a fetcher over fsys, typically os.DirFS("modules").
func NewDirFetcher(fsys fs.FS, ext string) *DirFetcher {
	if ext == "" {
		ext = DefaultExtension
	}
	return &DirFetcher{fsys: fsys, ext: ext}
}

func (f *DirFetcher) Fetch(ctx context.Context, module string) (string, error) {
	if !ValidModuleName(module) {
		return "", &RetrievalError{Module: module, Err: fmt.Errorf("invalid module name %q", module)}
	}
	if err := ctx.Err(); err != nil {
		return "", &RetrievalError{Module: module, Err: err}
	}

	data, err := fs.ReadFile(f.fsys, fragmentName(module, f.ext))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", &RetrievalError{Module: module, Status: http.StatusNotFound, Err: err}
		}
		return "", &RetrievalError{Module: module, Err: err}
	}
	return string(data), nil
}
