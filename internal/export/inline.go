package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"weekposter/internal/capture"
	"weekposter/internal/poster"
)

// ErrResourceUnavailable marks an image that could not be embedded.
var ErrResourceUnavailable = errors.New("resource unavailable")

// DefaultMaxImageBytes caps one embedded image.
const DefaultMaxImageBytes = 8 << 20

// Inliner embeds external image references as data: URIs so the document
// is self-contained before rasterization.
type Inliner struct {
	// AssetsDir resolves root-relative and relative hrefs.
	AssetsDir string
	// Client fetches http(s) hrefs; a 15s-timeout client when nil.
	Client   *http.Client
	MaxBytes int64
}

// Inline rewrites every image href of doc in place. A failed image gets an
// empty href, which renders as an empty region, and its error (wrapping
// ErrResourceUnavailable) is returned; the rest of the document is never
// touched.
func (in *Inliner) Inline(ctx context.Context, doc *poster.Document) []error {
	var errs []error
	cache := make(map[string]string)
	failed := make(map[string]bool)

	for _, img := range doc.Images() {
		href := img.Href
		if href == "" || strings.HasPrefix(href, "data:") {
			continue
		}
		if uri, ok := cache[href]; ok {
			img.Href = uri
			continue
		}
		if failed[href] {
			img.Href = ""
			continue
		}
		uri, err := in.resolve(ctx, href)
		if err != nil {
			failed[href] = true
			img.Href = ""
			errs = append(errs, fmt.Errorf("%w: %s: %v", ErrResourceUnavailable, href, err))
			continue
		}
		cache[href] = uri
		img.Href = uri
	}
	return errs
}

func (in *Inliner) resolve(ctx context.Context, href string) (string, error) {
	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		data, err = in.fetch(ctx, href)
	} else {
		data, err = in.readLocal(href)
	}
	if err != nil {
		return "", err
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", fmt.Errorf("not an image (%s)", mt.String())
	}
	return capture.DataURI(mt.String(), data), nil
}

func (in *Inliner) limit() int64 {
	if in.MaxBytes > 0 {
		return in.MaxBytes
	}
	return DefaultMaxImageBytes
}

func (in *Inliner) readLocal(href string) ([]byte, error) {
	if in.AssetsDir == "" {
		return nil, errors.New("no assets directory configured")
	}
	rel := filepath.FromSlash(strings.TrimPrefix(href, "/"))
	root, err := filepath.Abs(in.AssetsDir)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(root, rel)
	if path != root && !strings.HasPrefix(path, root+string(filepath.Separator)) {
		return nil, errors.New("path escapes assets directory")
	}
	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if st.Size() > in.limit() {
		return nil, fmt.Errorf("image larger than %d bytes", in.limit())
	}
	return os.ReadFile(path)
}

func (in *Inliner) fetch(ctx context.Context, href string) ([]byte, error) {
	client := in.Client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, href, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, in.limit()+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > in.limit() {
		return nil, fmt.Errorf("image larger than %d bytes", in.limit())
	}
	return data, nil
}
