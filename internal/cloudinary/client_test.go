package cloudinary

import (
	"context"
	"crypto/sha1"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSign(t *testing.T) {
	c := New("demo", "key", "secret", "")
	got := c.sign(map[string]string{"timestamp": "1700000000", "api_key": "key", "folder": "students", "file": "x"})
	want := fmt.Sprintf("%x", sha1.Sum([]byte("folder=students&timestamp=1700000000secret")))
	assert.Equal(t, want, got)
}

func TestUploadPhoto(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1_1/demo/image/upload", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "student-7", r.FormValue("public_id"))
		assert.Equal(t, "schoolportal/students", r.FormValue("folder"))
		assert.Equal(t, "1772409600", r.FormValue("timestamp"))
		assert.NotEmpty(t, r.FormValue("signature"))
		f, _, err := r.FormFile("file")
		require.NoError(t, err)
		b, _ := io.ReadAll(f)
		assert.Equal(t, "jpegbytes", string(b))
		_, _ = w.Write([]byte(`{"public_id":"schoolportal/students/student-7","secure_url":"https://res.example/student-7.jpg"}`))
	}))
	defer srv.Close()

	c := New("demo", "key", "secret", "schoolportal/students")
	c.BaseURL = srv.URL
	c.now = func() time.Time { return time.Unix(1772409600, 0) }

	res, err := c.UploadPhoto(context.Background(), []byte("jpegbytes"), "ana.jpg", "student-7")
	require.NoError(t, err)
	assert.Equal(t, "https://res.example/student-7.jpg", res.SecureURL)
}

func TestUploadNotConfigured(t *testing.T) {
	_, err := New("", "", "", "").UploadPhoto(context.Background(), nil, "x.jpg", "")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestUploadRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid image file"}}`))
	}))
	defer srv.Close()

	c := New("demo", "key", "secret", "")
	c.BaseURL = srv.URL
	_, err := c.UploadPhoto(context.Background(), []byte("nope"), "x.txt", "student-1")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Invalid image file", apiErr.Message)
}
