package utils

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/pkg/errors"
)

var errUnsupportedURL = errors.New("unsupported URL")

// ReadURL returns the content of an http(s) URL, a file URL or a plain
// path. userAgent is sent with http requests.
func ReadURL(ctx context.Context, rawURL string, userAgent string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "http", "https":
		return readHTTP(ctx, rawURL, userAgent)
	case "file":
		return os.ReadFile(u.Path)
	case "":
		return os.ReadFile(rawURL)
	}
	return nil, errors.Wrapf(errUnsupportedURL, "%q", rawURL)
}

func readHTTP(ctx context.Context, rawURL string, userAgent string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "GET %s", rawURL)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("GET %s: %s", rawURL, resp.Status)
	}
	return io.ReadAll(resp.Body)
}
