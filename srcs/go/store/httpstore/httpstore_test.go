package httpstore

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	c, err := NewClient(srv.URL, "httpstore-test")
	require.NoError(t, err)
	c.pollPeriod = 5 * time.Millisecond
	return c
}

func Test_SetGet(t *testing.T) {
	s := New(DefaultPath)
	srv := httptest.NewServer(LogRequest(s))
	defer srv.Close()
	c := newTestClient(t, srv)

	require.NoError(t, c.Set("pg/0_0", []byte{0, 1, 2}))
	got, err := c.Get("pg/0_0")
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 2}, got)

	raw, ok := s.Store().Lookup("pg/0_0")
	assert.True(t, ok)
	assert.Equal(t, []byte{0, 1, 2}, raw)
}

func Test_GetWaitsForSet(t *testing.T) {
	s := New(DefaultPath)
	srv := httptest.NewServer(s)
	defer srv.Close()
	reader := newTestClient(t, srv)
	writer := newTestClient(t, srv)

	var wg sync.WaitGroup
	wg.Add(1)
	var got []byte
	go func() {
		defer wg.Done()
		var err error
		got, err = reader.Get("1_3")
		assert.NoError(t, err)
	}()
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, writer.Set("1_3", []byte("id")))
	wg.Wait()
	assert.Equal(t, []byte("id"), got)
}

func Test_DeleteAll(t *testing.T) {
	s := New(DefaultPath)
	srv := httptest.NewServer(s)
	defer srv.Close()
	c := newTestClient(t, srv)
	require.NoError(t, c.Set("a", []byte{1}))

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/store", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, 0, s.Store().Len())

	req, _ = http.NewRequest(http.MethodPatch, srv.URL+"/store/a", nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func Test_NewClient(t *testing.T) {
	c, err := NewClient("127.0.0.1:38080", "ua")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:38080/store/0_1", c.keyURL("0_1"))

	c, err = NewClient("http://10.0.0.1:80/rdzv", "ua")
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.1:80/rdzv/a%2Fb", c.keyURL("a/b"))

	_, err = NewClient("ftp://host/", "ua")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported store URL "ftp://host/"`)
	_, traced := err.(interface{ StackTrace() errors.StackTrace })
	assert.True(t, traced)
}
