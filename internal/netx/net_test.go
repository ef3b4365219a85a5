package netx

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploader(t *testing.T) {
	var (
		method, contentType string
		body                []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		contentType = r.Header.Get("Content-Type")
		body, _ = io.ReadAll(r.Body)
		if strings.Contains(r.URL.RawQuery, "deny") {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte("SignatureDoesNotMatch"))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	u := NewUploader()
	defer u.Close()

	t.Run("success", func(t *testing.T) {
		require.NoError(t, u.Upload(context.Background(), srv.URL+"/media/p1?sig=ok", "image/png", strings.NewReader("pulse media")))
		assert.Equal(t, http.MethodPut, method)
		assert.Equal(t, "image/png", contentType)
		assert.Equal(t, []byte("pulse media"), body)
	})

	t.Run("default content type", func(t *testing.T) {
		require.NoError(t, u.Upload(context.Background(), srv.URL+"/media/p2", "", strings.NewReader("x")))
		assert.Equal(t, defaultContentType, contentType)
	})

	t.Run("rejected", func(t *testing.T) {
		err := u.Upload(context.Background(), srv.URL+"/media/p1?deny=1", "image/png", strings.NewReader("x"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 403")
		assert.Contains(t, err.Error(), "SignatureDoesNotMatch")
	})

	t.Run("unreachable", func(t *testing.T) {
		err := u.Upload(context.Background(), "http://127.0.0.1:1/x", "image/png", strings.NewReader("x"))
		assert.Error(t, err)
	})
}
