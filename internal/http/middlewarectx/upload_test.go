package middlewarectx_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/user-auth/internal/http/middlewarectx"
)

func multipartRequest(t *testing.T, field, filename, content string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	if field != "" {
		part, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	} else {
		require.NoError(t, mw.WriteField("note", "no file"))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPatch, "/api/users/avatars", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUpload_StoresFile(t *testing.T) {
	tmpDir := filepath.Join(t.TempDir(), "tmp")
	var seenPath string

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file := middlewarectx.FileFromContext(r.Context())
		require.NotNil(t, file)
		assert.Equal(t, "me.png", file.Filename)
		assert.Equal(t, tmpDir, filepath.Dir(file.TmpPath))
		assert.True(t, strings.HasSuffix(file.TmpPath, ".png"))

		data, err := os.ReadFile(file.TmpPath)
		require.NoError(t, err)
		assert.Equal(t, "png-bytes", string(data))
		seenPath = file.TmpPath
		w.WriteHeader(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	middlewarectx.Upload(newNoopLogger(), tmpDir, middlewarectx.AvatarField, 1<<20)(next).
		ServeHTTP(rr, multipartRequest(t, "avatar", "../../me.png", "png-bytes"))

	assert.Equal(t, http.StatusOK, rr.Code)
	require.NotEmpty(t, seenPath)
	assert.NoFileExists(t, seenPath)
}

func TestUpload_PassesThroughWithoutFile(t *testing.T) {
	tests := []struct {
		name string
		req  func(t *testing.T) *http.Request
	}{
		{
			name: "multipart without avatar field",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "", "", "")
			},
		},
		{
			name: "json body",
			req: func(_ *testing.T) *http.Request {
				req := httptest.NewRequest(http.MethodPatch, "/api/users/avatars", strings.NewReader(`{}`))
				req.Header.Set("Content-Type", "application/json")
				return req
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				assert.Nil(t, middlewarectx.FileFromContext(r.Context()))
				w.WriteHeader(http.StatusBadRequest)
			})

			rr := httptest.NewRecorder()
			middlewarectx.Upload(newNoopLogger(), t.TempDir(), middlewarectx.AvatarField, 1<<20)(next).ServeHTTP(rr, tt.req(t))

			assert.True(t, called)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}
}

func TestUpload_Rejects(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  string
		maxBytes int64
	}{
		{name: "unsupported extension", filename: "doc.txt", content: "text", maxBytes: 1 << 20},
		{name: "body over limit", filename: "big.png", content: strings.Repeat("x", 4096), maxBytes: 512},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			called := false
			next := http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
				called = true
			})

			rr := httptest.NewRecorder()
			middlewarectx.Upload(newNoopLogger(), tmpDir, middlewarectx.AvatarField, tt.maxBytes)(next).
				ServeHTTP(rr, multipartRequest(t, "avatar", tt.filename, tt.content))

			assert.False(t, called)
			assert.GreaterOrEqual(t, rr.Code, http.StatusBadRequest)
			entries, err := os.ReadDir(tmpDir)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}
