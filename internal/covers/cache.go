package covers

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// MaxCoverSize caps a single cached image. OpenLibrary "-L" covers are well below it.
const MaxCoverSize = 5 << 20

var (
	ErrNotImage      = errors.New("cover response is not an image")
	ErrCoverTooLarge = errors.New("cover image exceeds size limit")
)

// Cache keeps catalog cover images on local disk so the public catalog
// does not hit OpenLibrary for every page view.
type Cache struct {
	dir        string
	httpClient *http.Client
}

// NewCache creates the cache directory if needed.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create cover cache dir: %w", err)
	}

	return &Cache{
		dir: dir,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Path returns the cached file for the book's cover, downloading it first if needed.
// An empty coverURL yields an empty path and no error.
func (c *Cache) Path(ctx context.Context, bookID uint, coverURL string) (string, error) {
	if coverURL == "" {
		return "", nil
	}

	cachePath := filepath.Join(c.dir, filename(bookID, coverURL))
	if _, err := os.Stat(cachePath); err == nil {
		return cachePath, nil
	}

	if err := c.download(ctx, coverURL, cachePath); err != nil {
		return "", fmt.Errorf("cache cover for book %d: %w", bookID, err)
	}
	return cachePath, nil
}

func (c *Cache) Dir() string {
	return c.dir
}

// filename keys on the URL too, so a replaced cover never serves the stale file.
func filename(bookID uint, coverURL string) string {
	hash := sha256.Sum256([]byte(coverURL))
	return fmt.Sprintf("book_%d_%x.jpg", bookID, hash[:8])
}

func (c *Cache) download(ctx context.Context, coverURL, cachePath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, coverURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "UniversityLibrary/1.0 (cover cache)")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch cover: status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		return fmt.Errorf("%w: %s", ErrNotImage, ct)
	}

	tmp, err := os.CreateTemp(c.dir, "cover_tmp_")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer func() {
		tmp.Close()
		os.Remove(tmpPath)
	}()

	n, err := io.Copy(tmp, io.LimitReader(resp.Body, MaxCoverSize+1))
	if err != nil {
		return err
	}
	if n > MaxCoverSize {
		return ErrCoverTooLarge
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpPath, cachePath)
}
