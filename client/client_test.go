package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Validation(t *testing.T) {
	_, err := New("http://localhost:8080/api/v1", nil)
	assert.Error(t, err)

	_, err = New("not a url", newMemStore("", ""))
	assert.Error(t, err)

	c, err := New("", newMemStore("", ""))
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, c.BaseURL())

	c, err = New("http://example.test/api/", newMemStore("", ""))
	require.NoError(t, err)
	assert.Equal(t, "http://example.test/api", c.BaseURL())
}

func TestGet_SendsJSONHeadersAndBearer(t *testing.T) {
	var got http.Header
	c, _ := newTestClient(t, newMemStore("A1", "R1"), map[string]http.HandlerFunc{
		"/ping": func(w http.ResponseWriter, r *http.Request) {
			got = r.Header.Clone()
			writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		},
	})

	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, c.Get(context.Background(), "/ping", &out))
	assert.True(t, out.OK)
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, "application/json", got.Get("Accept"))
	assert.Equal(t, "Bearer A1", got.Get("Authorization"))
	assert.Equal(t, DefaultUserAgent, got.Get("User-Agent"))
}

func TestGet_OmitsAuthorizationWithoutToken(t *testing.T) {
	var auth string
	c, _ := newTestClient(t, newMemStore("", ""), map[string]http.HandlerFunc{
		"/ping": func(w http.ResponseWriter, r *http.Request) {
			auth = r.Header.Get("Authorization")
			w.WriteHeader(http.StatusNoContent)
		},
	})
	require.NoError(t, c.Get(context.Background(), "/ping", nil))
	assert.Empty(t, auth)
}

func TestWithoutAuth_OmitsStoredToken(t *testing.T) {
	var auth string
	c, _ := newTestClient(t, newMemStore("A1", "R1"), map[string]http.HandlerFunc{
		"/public": func(w http.ResponseWriter, r *http.Request) {
			auth = r.Header.Get("Authorization")
			writeJSON(w, http.StatusOK, map[string]string{})
		},
	})
	require.NoError(t, c.Get(context.Background(), "/public", nil, WithoutAuth()))
	assert.Empty(t, auth)
}

func TestRequestOptions_QueryAndHeader(t *testing.T) {
	var gotQuery url.Values
	var gotHeader string
	c, _ := newTestClient(t, newMemStore("", ""), map[string]http.HandlerFunc{
		"/search": func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.Query()
			gotHeader = r.Header.Get("X-Request-Id")
			writeJSON(w, http.StatusOK, []string{})
		},
	})
	err := c.Get(context.Background(), "search", nil,
		WithQuery(url.Values{"q": {"apple inc"}}),
		WithHeader("X-Request-Id", "abc"))
	require.NoError(t, err)
	assert.Equal(t, "apple inc", gotQuery.Get("q"))
	assert.Equal(t, "abc", gotHeader)
}

func TestPost_EncodesBody(t *testing.T) {
	var body []byte
	c, _ := newTestClient(t, newMemStore("A1", "R1"), map[string]http.HandlerFunc{
		"/echo": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			body, _ = io.ReadAll(r.Body)
			writeJSON(w, http.StatusCreated, map[string]int{"id": 7})
		},
	})
	out, err := PostAs[map[string]int](context.Background(), c, "/echo", map[string]string{"name": "x"})
	require.NoError(t, err)
	assert.Equal(t, 7, out["id"])
	assert.JSONEq(t, `{"name":"x"}`, string(body))
}

func TestPutAndDelete(t *testing.T) {
	var methods []string
	c, _ := newTestClient(t, newMemStore("A1", "R1"), map[string]http.HandlerFunc{
		"/item": func(w http.ResponseWriter, r *http.Request) {
			methods = append(methods, r.Method)
			w.WriteHeader(http.StatusOK)
		},
	})
	require.NoError(t, c.Put(context.Background(), "/item", map[string]int{"n": 1}, nil))
	require.NoError(t, c.Delete(context.Background(), "/item", nil))
	assert.Equal(t, []string{http.MethodPut, http.MethodDelete}, methods)
}

func TestClassify_ErrorKinds(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		sentinel error
		kind     Kind
	}{
		{"forbidden", http.StatusForbidden, ErrAuthorization, KindAuthorization},
		{"server", http.StatusInternalServerError, ErrServer, KindServer},
		{"bad gateway", http.StatusBadGateway, ErrServer, KindServer},
		{"not found", http.StatusNotFound, ErrRequest, KindRequest},
		{"rate limited", http.StatusTooManyRequests, ErrRequest, KindRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			refreshes := &counter{}
			c, _ := newTestClient(t, newMemStore("A1", "R1"), map[string]http.HandlerFunc{
				"/x": func(w http.ResponseWriter, r *http.Request) {
					calls++
					writeError(w, tt.status, "ERR", "details here")
				},
				"/auth/refresh": refreshHandler(t, refreshes, "R1", TokenPair{"A2", "R2"}),
			})
			err := c.Get(context.Background(), "/x", nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.Equal(t, tt.kind, KindOf(err))
			assert.Equal(t, tt.status, StatusOf(err))
			assert.Contains(t, err.Error(), "details here")
			assert.Equal(t, 1, calls, "non-401 failures are never retried")
			assert.Equal(t, 0, refreshes.get())
		})
	}
}

func TestClassify_RawBodyMessage(t *testing.T) {
	c, _ := newTestClient(t, newMemStore("", ""), map[string]http.HandlerFunc{
		"/x": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("Symbol is required"))
		},
	})
	err := c.Get(context.Background(), "/x", nil)
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Symbol is required", apiErr.Message)
	assert.Equal(t, "Symbol is required", MessageOf(err))
	assert.Equal(t, http.MethodGet, apiErr.Method)
	assert.Equal(t, "/x", apiErr.Path)
	assert.False(t, apiErr.Retried)
}

func TestMessageOf_NonAPIError(t *testing.T) {
	assert.Equal(t, "", MessageOf(nil))
	assert.Equal(t, "plain", MessageOf(errors.New("plain")))
}

func TestNetworkError_Unreachable(t *testing.T) {
	c, srv := newTestClient(t, newMemStore("A1", "R1"), map[string]http.HandlerFunc{})
	srv.Close()

	err := c.Get(context.Background(), "/x", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestNetworkError_Timeout(t *testing.T) {
	c, _ := newTestClient(t, newMemStore("A1", "R1"), map[string]http.HandlerFunc{
		"/slow": func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-time.After(2 * time.Second):
			case <-r.Context().Done():
			}
			w.WriteHeader(http.StatusOK)
		},
	})
	start := time.Now()
	err := c.Get(context.Background(), "/slow", nil, WithTimeout(50*time.Millisecond))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetwork)
	assert.Less(t, time.Since(start), time.Second)
}

func TestDefaultTimeoutOption(t *testing.T) {
	c, _ := newTestClient(t, newMemStore("", ""), map[string]http.HandlerFunc{
		"/slow": func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-time.After(2 * time.Second):
			case <-r.Context().Done():
			}
		},
	}, WithDefaultTimeout(50*time.Millisecond))
	assert.ErrorIs(t, c.Get(context.Background(), "/slow", nil), ErrNetwork)
}

func TestDecode_MalformedBody(t *testing.T) {
	c, _ := newTestClient(t, newMemStore("", ""), map[string]http.HandlerFunc{
		"/x": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("{not json"))
		},
	})
	var out map[string]any
	err := c.Get(context.Background(), "/x", &out)
	require.Error(t, err)
	assert.Empty(t, KindOf(err))
}

func TestError_IsMatchesByKind(t *testing.T) {
	err := &Error{Kind: KindServer, Status: 503, Method: "GET", Path: "/x"}
	assert.True(t, errors.Is(err, ErrServer))
	assert.False(t, errors.Is(err, ErrNetwork))
	assert.Equal(t, "server error on GET /x (status 503)", err.Error())

	wrapped := errors.Join(errors.New("outer"), err)
	assert.Equal(t, KindServer, KindOf(wrapped))
}

func TestServerMessage(t *testing.T) {
	assert.Equal(t, "m", serverMessage([]byte(`{"error":"E","message":"m"}`)))
	assert.Equal(t, "E", serverMessage([]byte(`{"error":"E"}`)))
	assert.Equal(t, "plain text", serverMessage([]byte("  plain text \n")))
	long := make([]byte, maxMessageLen+100)
	for i := range long {
		long[i] = 'a'
	}
	assert.Len(t, serverMessage(long), maxMessageLen+3)
}
