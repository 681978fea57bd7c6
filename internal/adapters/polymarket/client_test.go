package polymarket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pythia/pkg/errors"
	"pythia/pkg/logger"
)

func newTestLogger() *logger.Logger {
	zapLog, _ := zap.NewDevelopment()
	return &logger.Logger{SugaredLogger: zapLog.Sugar()}
}

// newTestClient points all three API bases at one test server so each test
// can route by path.
func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(Config{
		GammaURL:     srv.URL,
		DataURL:      srv.URL,
		ClobURL:      srv.URL,
		Timeout:      5 * time.Second,
		RateLimitRPS: 1000,
	}, newTestLogger())
}

type stubCache struct {
	data map[string][]byte
	sets int
}

func newStubCache() *stubCache {
	return &stubCache{data: make(map[string][]byte)}
}

func (s *stubCache) Get(_ context.Context, key string) ([]byte, bool) {
	payload, ok := s.data[key]
	return payload, ok
}

func (s *stubCache) Set(_ context.Context, key string, payload []byte) {
	s.data[key] = payload
	s.sets++
}

func TestGetJSON_Success(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Write([]byte(`[{"id": "m1"}]`))
	}))

	var raw interface{}
	params := url.Values{}
	params.Set("limit", "5")
	err := client.getJSON(context.Background(), apiGamma, client.gammaURL, "/markets", params, &raw)
	require.NoError(t, err)

	entries := decodeList(raw)
	require.Len(t, entries, 1)
	assert.Equal(t, "m1", entries[0]["id"])
}

func TestGetJSON_HTTPError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"error": "upstream down"}`))
	}))

	var raw interface{}
	err := client.getJSON(context.Background(), apiData, client.dataURL, "/trades", nil, &raw)
	require.Error(t, err)

	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusBadGateway, upstream.StatusCode)
	assert.Contains(t, upstream.Body, "upstream down")
	assert.True(t, errors.Is(err, errors.ErrExternal))
}

func TestGetJSON_UnparsableBody(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>definitely not json</html>"))
	}))

	var raw interface{}
	err := client.getJSON(context.Background(), apiClob, client.clobURL, "/book", nil, &raw)
	require.Error(t, err)

	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Contains(t, upstream.Body, "unparsable body")
	assert.True(t, errors.Is(err, errors.ErrExternal))
}

func TestGetJSON_BodyExcerptTruncated(t *testing.T) {
	long := strings.Repeat("x", 1000)
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(long))
	}))

	var raw interface{}
	err := client.getJSON(context.Background(), apiGamma, client.gammaURL, "/markets", nil, &raw)

	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Len(t, upstream.Body, 303)
	assert.True(t, strings.HasSuffix(upstream.Body, "..."))
}

func TestGetJSON_ContextCancelled(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var raw interface{}
	err := client.getJSON(ctx, apiGamma, client.gammaURL, "/markets", nil, &raw)
	assert.Error(t, err)
}

func TestCachedList(t *testing.T) {
	t.Run("miss fetches and stores", func(t *testing.T) {
		cache := newStubCache()
		client := &Client{cache: cache, log: newTestLogger()}

		calls := 0
		out, err := cachedList(context.Background(), client, "k", func() ([]string, error) {
			calls++
			return []string{"a", "b"}, nil
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, out)
		assert.Equal(t, 1, calls)
		assert.Equal(t, 1, cache.sets)
	})

	t.Run("hit skips the fetch", func(t *testing.T) {
		cache := newStubCache()
		cache.data["k"] = []byte(`["cached"]`)
		client := &Client{cache: cache, log: newTestLogger()}

		calls := 0
		out, err := cachedList(context.Background(), client, "k", func() ([]string, error) {
			calls++
			return nil, nil
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"cached"}, out)
		assert.Zero(t, calls)
	})

	t.Run("corrupt payload falls through to fetch", func(t *testing.T) {
		cache := newStubCache()
		cache.data["k"] = []byte(`{{{`)
		client := &Client{cache: cache, log: newTestLogger()}

		out, err := cachedList(context.Background(), client, "k", func() ([]string, error) {
			return []string{"live"}, nil
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"live"}, out)
	})

	t.Run("empty result is not stored", func(t *testing.T) {
		cache := newStubCache()
		client := &Client{cache: cache, log: newTestLogger()}

		_, err := cachedList(context.Background(), client, "k", func() ([]string, error) {
			return nil, nil
		})
		require.NoError(t, err)
		assert.Zero(t, cache.sets)
	})

	t.Run("fetch error propagates", func(t *testing.T) {
		client := &Client{cache: newStubCache(), log: newTestLogger()}

		_, err := cachedList(context.Background(), client, "k", func() ([]string, error) {
			return nil, errors.ErrExternal
		})
		assert.ErrorIs(t, err, errors.ErrExternal)
	})

	t.Run("nil cache goes straight to fetch", func(t *testing.T) {
		client := &Client{log: newTestLogger()}

		out, err := cachedList(context.Background(), client, "k", func() ([]string, error) {
			return []string{"direct"}, nil
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"direct"}, out)
	})
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient(Config{}, newTestLogger())

	assert.Equal(t, defaultGammaURL, client.gammaURL)
	assert.Equal(t, defaultDataURL, client.dataURL)
	assert.Equal(t, defaultClobURL, client.clobURL)
	assert.NotNil(t, client.httpClient)
	assert.Equal(t, defaultTimeout, client.httpClient.Timeout)
}
