package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// Allow to use a function as auth service
type authFunc func(r *http.Request) error

func (f authFunc) Auth(r *http.Request) error {
	return f(r)
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("passed"))
})

func TestAdminAuth(t *testing.T) {
	t.Run("auth ok", func(t *testing.T) {
		middleware := AdminAuth(authFunc(func(r *http.Request) error { return nil }))

		srv := httptest.NewServer(middleware(okHandler))
		defer srv.Close()

		resp, err := http.Get(srv.URL + "/test")
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		defer resp.Body.Close() // nolint:errcheck

		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "passed", string(body))
	})

	t.Run("auth fail", func(t *testing.T) {
		middleware := AdminAuth(authFunc(func(r *http.Request) error { return errors.New("nope") }))

		srv := httptest.NewServer(middleware(okHandler))
		defer srv.Close()

		resp, err := http.Get(srv.URL + "/test")
		require.NoError(t, err)
		defer resp.Body.Close() // nolint:errcheck

		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestCronAuth(t *testing.T) {
	const secret = "cron-secret"

	request := func(t *testing.T, url string, authHeader string) *http.Response {
		req, err := http.NewRequest(http.MethodGet, url+"/test", nil)
		require.NoError(t, err)
		if authHeader != "" {
			req.Header.Set("Authorization", authHeader)
		}

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() }) // nolint:errcheck

		return resp
	}

	srv := httptest.NewServer(CronAuth(secret)(okHandler))
	defer srv.Close()

	t.Run("valid secret", func(t *testing.T) {
		resp := request(t, srv.URL, "Bearer "+secret)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("wrong secret", func(t *testing.T) {
		resp := request(t, srv.URL, "Bearer not-the-secret")
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("missing header", func(t *testing.T) {
		resp := request(t, srv.URL, "")
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("empty configured secret always fails", func(t *testing.T) {
		emptySrv := httptest.NewServer(CronAuth("")(okHandler))
		defer emptySrv.Close()

		resp := request(t, emptySrv.URL, "Bearer ")
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}
