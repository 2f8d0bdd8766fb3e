package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/qepting91/idea-collector/internal/domain"
)

func TestStatusKind(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, domain.ErrAuthentication},
		{http.StatusForbidden, domain.ErrAuthentication},
		{http.StatusTooManyRequests, domain.ErrRateLimit},
		{http.StatusInternalServerError, domain.ErrTransientNetwork},
		{http.StatusServiceUnavailable, domain.ErrTransientNetwork},
		{http.StatusNotFound, domain.ErrMalformedResponse},
		{http.StatusBadRequest, domain.ErrMalformedResponse},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusKind(tt.status), "status %d", tt.status)
	}
}

func TestGet(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		switch r.URL.Path {
		case "/ok":
			_, _ = w.Write([]byte(`{"ok":true}`))
		case "/throttled":
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte("slow down"))
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	client := NewClient("test-agent/1.0")
	ctx := context.Background()

	resp, err := Get(ctx, client, "reddit", srv.URL+"/ok")
	require.NoError(t, err)
	var body struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, DecodeJSON("reddit", resp.Body, &body))
	resp.Body.Close()
	assert.True(t, body.OK)
	assert.Equal(t, "test-agent/1.0", gotUA)

	_, err = Get(ctx, client, "reddit", srv.URL+"/throttled")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRateLimit)
	assert.Contains(t, err.Error(), "slow down")

	_, err = Get(ctx, client, "reddit", srv.URL+"/down")
	assert.ErrorIs(t, err, domain.ErrTransientNetwork)
}

func TestGetConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := Get(context.Background(), NewClient(""), "youtube", addr)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransientNetwork)
}

func TestDecodeJSONMalformed(t *testing.T) {
	var v map[string]any
	err := DecodeJSON("youtube", strings.NewReader("<html>"), &v)
	assert.ErrorIs(t, err, domain.ErrMalformedResponse)
}

func TestTransportOAuthRejection(t *testing.T) {
	err := &url.Error{Op: "Get", URL: "https://oauth.reddit.com", Err: &oauth2.RetrieveError{Response: &http.Response{Status: "401 Unauthorized"}}}
	assert.ErrorIs(t, Transport("reddit", err), domain.ErrAuthentication)
	assert.ErrorIs(t, Transport("reddit", errors.New("connection reset")), domain.ErrTransientNetwork)
}
