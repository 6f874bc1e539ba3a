package media

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

	"hackathon/internal/cloudinary"
)

// URLPrefix is where locally stored assets are served from.
const URLPrefix = "/uploads"

// Storage persists assets and returns a location clients can fetch.
type Storage interface {
	Save(ctx context.Context, folder, name string, data []byte) (string, error)
}

// Local writes assets under a directory served at URLPrefix.
type Local struct {
	Dir string
}

// NewLocal creates the upload directory if needed.
func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Local{Dir: dir}, nil
}

// Save writes data to Dir/folder/name.
func (l *Local) Save(_ context.Context, folder, name string, data []byte) (string, error) {
	name = filepath.Base(name)
	dir := filepath.Join(l.Dir, filepath.Base(folder))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return "", err
	}
	return strings.Join([]string{URLPrefix, filepath.Base(folder), name}, "/"), nil
}

// Cloud stores assets on Cloudinary.
type Cloud struct {
	Client *cloudinary.Client
}

// Save uploads data and returns its https URL.
func (c *Cloud) Save(ctx context.Context, folder, name string, data []byte) (string, error) {
	res, err := c.Client.Upload(ctx, data, folder, name)
	if err != nil {
		return "", err
	}
	if res.SecureURL != "" {
		return res.SecureURL, nil
	}
	return res.URL, nil
}

// Loader reads back assets referenced by a stored location: a remote http(s)
// URL, a /uploads path, or a bare file name relative to Dir.
type Loader struct {
	Dir  string
	HTTP *http.Client
}

// NewLoader builds a loader for assets saved by Local in dir or by Cloud.
func NewLoader(dir string) *Loader {
	return &Loader{Dir: dir, HTTP: &http.Client{Timeout: 10 * time.Second}}
}

// Load fetches the bytes behind ref.
func (l *Loader) Load(ctx context.Context, ref string) ([]byte, error) {
	switch {
	case ref == "":
		return nil, errors.New("empty asset reference")
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
		if err != nil {
			return nil, err
		}
		resp, err := l.HTTP.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetch %s: status %d", ref, resp.StatusCode)
		}
		return io.ReadAll(io.LimitReader(resp.Body, 20<<20))
	case strings.Contains(ref, "://"):
		return nil, fmt.Errorf("unsupported asset reference %q", ref)
	}

	// Anything else is a path under Dir, with or without the /uploads prefix.
	rel := filepath.Clean(filepath.FromSlash(strings.TrimPrefix(ref, URLPrefix+"/")))
	if rel == "." || filepath.IsAbs(rel) || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("asset path escapes upload dir: %s", ref)
	}
	return os.ReadFile(filepath.Join(l.Dir, rel))
}
