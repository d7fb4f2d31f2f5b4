package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/brikvest/apiserver/config"
)

type fakeBackend struct {
	objects      map[string][]byte
	contentTypes map[string]string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		objects:      make(map[string][]byte),
		contentTypes: make(map[string]string),
	}
}

func (f *fakeBackend) EnsureBucket(context.Context) error { return nil }

func (f *fakeBackend) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.objects[key] = data
	f.contentTypes[key] = contentType
	return nil
}

func (f *fakeBackend) Get(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(strings.NewReader(string(data))), nil
}

func (f *fakeBackend) Delete(_ context.Context, key string) error {
	delete(f.objects, key)
	return nil
}

func (f *fakeBackend) Bucket() string { return "test-bucket" }

func TestPutDefaultsContentType(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	s := NewStorage(backend)

	if err := s.Put(ctx, "kyc/1/doc", strings.NewReader("scan"), 4, ""); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if got := backend.contentTypes["kyc/1/doc"]; got != "application/octet-stream" {
		t.Fatalf("content type = %q; want application/octet-stream", got)
	}

	if err := s.Put(ctx, "properties/1/img", strings.NewReader("png"), 3, "image/png"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if got := backend.contentTypes["properties/1/img"]; got != "image/png" {
		t.Fatalf("content type = %q; want image/png", got)
	}
}

func TestGetMissingObject(t *testing.T) {
	s := NewStorage(newFakeBackend())
	if _, err := s.Get(context.Background(), "kyc/9/missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get = %v; want ErrNotFound", err)
	}
}

func TestNewFromConfigUnknownBackend(t *testing.T) {
	if _, err := NewFromConfig(context.Background(), config.StorageConfig{Backend: "tape"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
