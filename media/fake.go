package media

import (
	"context"
	"io"
	"io/ioutil"
	"sync"
)

// FakeStore is an in-memory media Store for tests. It records every upload
// and serves back a deterministic URL.
type FakeStore struct {
	mu      sync.Mutex
	Uploads map[string][]byte
	Err     error
}

func NewFakeStore() *FakeStore {
	return &FakeStore{Uploads: map[string][]byte{}}
}

func (f *FakeStore) UploadImage(ctx context.Context, filename string, body io.Reader) (string, error) {
	return f.record(ctx, "image/", filename, body)
}

func (f *FakeStore) UploadVideo(ctx context.Context, filename string, body io.Reader) (string, error) {
	return f.record(ctx, "video/", filename, body)
}

func (f *FakeStore) record(ctx context.Context, prefix, filename string, body io.Reader) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return "", f.Err
	}
	payload, err := ioutil.ReadAll(body)
	if err != nil {
		return "", err
	}
	key := prefix + filename
	f.Uploads[key] = payload
	return "https://media.fake/" + key, nil
}
