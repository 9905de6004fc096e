package media

import (
	"context"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/moastrends/newsroom/utils"
	"github.com/stretchr/testify/require"
)

func testCloudinaryStore(baseURL string) *CloudinaryStore {
	return &CloudinaryStore{
		cloudName:    "demo",
		uploadPreset: "unsigned_preset",
		baseURL:      baseURL,
		client:       &http.Client{Timeout: time.Second},
		retry:        utils.RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond},
	}
}

func TestCloudinaryUploadImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/demo/image/upload", r.URL.Path)

		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "unsigned_preset", r.FormValue("upload_preset"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		require.Equal(t, "cover.png", header.Filename)
		payload, err := ioutil.ReadAll(file)
		require.NoError(t, err)
		require.Equal(t, "png bytes", string(payload))

		fmt.Fprint(w, `{"secure_url":"https://res.cloudinary.com/demo/image/upload/cover.png"}`)
	}))
	defer srv.Close()

	c := testCloudinaryStore(srv.URL)
	url, err := c.UploadImage(context.Background(), "cover.png", strings.NewReader("png bytes"))
	require.NoError(t, err)
	require.Equal(t, "https://res.cloudinary.com/demo/image/upload/cover.png", url)
}

func TestCloudinaryUploadVideoPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/demo/video/upload", r.URL.Path)
		fmt.Fprint(w, `{"secure_url":"https://res.cloudinary.com/demo/video/upload/clip.mp4"}`)
	}))
	defer srv.Close()

	c := testCloudinaryStore(srv.URL)
	url, err := c.UploadVideo(context.Background(), "clip.mp4", strings.NewReader("mp4 bytes"))
	require.NoError(t, err)
	require.Equal(t, "https://res.cloudinary.com/demo/video/upload/clip.mp4", url)
}

// A transient server error is retried with the same payload.
func TestCloudinaryUploadRetries(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, _, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		payload, err := ioutil.ReadAll(file)
		require.NoError(t, err)
		require.Equal(t, "png bytes", string(payload))
		fmt.Fprint(w, `{"secure_url":"https://res.cloudinary.com/demo/image/upload/cover.png"}`)
	}))
	defer srv.Close()

	c := testCloudinaryStore(srv.URL)
	url, err := c.UploadImage(context.Background(), "cover.png", strings.NewReader("png bytes"))
	require.NoError(t, err)
	require.Equal(t, "https://res.cloudinary.com/demo/image/upload/cover.png", url)
	require.EqualValues(t, 3, atomic.LoadInt32(&attempts))
}

func TestCloudinaryUploadGivesUpAfterMaxAttempts(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := testCloudinaryStore(srv.URL)
	_, err := c.UploadImage(context.Background(), "cover.png", strings.NewReader("png bytes"))
	require.Error(t, err)
	require.EqualValues(t, 3, atomic.LoadInt32(&attempts))
}
