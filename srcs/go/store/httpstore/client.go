package httpstore

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lsds/ncclpg/srcs/go/config"
	"github.com/lsds/ncclpg/srcs/go/log"
	"github.com/pkg/errors"
)

// Client implements store.Store against a Server.
type Client struct {
	base       string
	userAgent  string
	pollPeriod time.Duration
	httpClient http.Client
}

// NewClient accepts "host:port" or a full URL; the server path defaults to
// DefaultPath.
func NewClient(addr string, userAgent string) (*Client, error) {
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	u, err := url.Parse(addr)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("unsupported store URL %q", addr)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = DefaultPath
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return &Client{
		base:       u.String(),
		userAgent:  userAgent,
		pollPeriod: config.StorePollPeriod,
	}, nil
}

func (c *Client) keyURL(key string) string {
	return c.base + url.PathEscape(key)
}

func (c *Client) do(method, key string, body []byte) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, c.keyURL(key), r)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	return c.httpClient.Do(req)
}

func (c *Client) Set(key string, value []byte) error {
	resp, err := c.do(http.MethodPut, key, value)
	if err != nil {
		return errors.Wrapf(err, "store set %q", key)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("store set %q: %s", key, resp.Status)
	}
	return nil
}

// Get polls the server until the key is published. Connection failures are
// retried as well, since the launcher may still be starting the server.
func (c *Client) Get(key string) ([]byte, error) {
	for i := 0; ; i++ {
		value, ok, err := c.tryGet(key)
		if err != nil {
			return nil, err
		}
		if ok {
			if i > 0 {
				log.Debugf("got %q after %d polls", key, i+1)
			}
			return value, nil
		}
		time.Sleep(c.pollPeriod)
	}
}

func (c *Client) tryGet(key string) ([]byte, bool, error) {
	resp, err := c.do(http.MethodGet, key, nil)
	if err != nil {
		log.Debugf("store get %q failed: %v, will retry", key, err)
		return nil, false, nil
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK:
		value, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, false, errors.Wrapf(err, "store get %q", key)
		}
		return value, true, nil
	case http.StatusNotFound:
		return nil, false, nil
	default:
		return nil, false, errors.Errorf("store get %q: %s", key, resp.Status)
	}
}
