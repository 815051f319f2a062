package userclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/user/alice":
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"username":"alice"}`))
		case "/api/auth/user/broken":
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := New(srv.URL+"/", time.Second)

	ok, err := c.Exists(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Exists(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = c.Exists(context.Background(), "broken")
	assert.True(t, errors.Is(err, ErrUnavailable), "got %v", err)
}

func TestExistsEscapesUsername(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.EscapedPath()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).Exists(context.Background(), "a/b c")
	require.NoError(t, err)
	assert.Equal(t, "/api/auth/user/a%2Fb%20c", got)
}

func TestExistsTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, err := New(srv.URL, 20*time.Millisecond).Exists(context.Background(), "alice")
	assert.True(t, errors.Is(err, ErrUnavailable), "got %v", err)
}

func TestExistsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := New(addr, time.Second).Exists(context.Background(), "alice")
	assert.True(t, errors.Is(err, ErrUnavailable), "got %v", err)
}
