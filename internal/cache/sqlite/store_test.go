package sqlite

import (
	"bytes"
	"context"
	"net/http"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ryanolee/serverless-offline-edge-lambda/internal/event"
)

func testResponse() *event.Response {
	return &event.Response{
		Status:            200,
		StatusDescription: "OK",
		Headers: http.Header{
			"Content-Type": {"text/plain"},
			"Set-Cookie":   {"a=1", "b=2"},
		},
		Body: []byte("hello world"),
	}
}

func TestStore_RoundTrip(t *testing.T) {
	store, err := New("file:cachetest1?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer store.Close()

	want := testResponse()
	if err := store.Store(context.Background(), "fp-1", want); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	entry, err := store.Lookup(context.Background(), "fp-1")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if entry == nil {
		t.Fatal("Lookup() = miss, want hit")
	}

	got := entry.Response
	if got.Status != want.Status {
		t.Errorf("Status = %d, want %d", got.Status, want.Status)
	}
	if got.StatusDescription != want.StatusDescription {
		t.Errorf("StatusDescription = %q, want %q", got.StatusDescription, want.StatusDescription)
	}
	if !reflect.DeepEqual(got.Headers, want.Headers) {
		t.Errorf("Headers = %v, want %v", got.Headers, want.Headers)
	}
	if !bytes.Equal(got.Body, want.Body) {
		t.Errorf("Body = %q, want %q", got.Body, want.Body)
	}
	if entry.StoredAt.IsZero() {
		t.Error("StoredAt should be set")
	}
}

func TestStore_MissReturnsNil(t *testing.T) {
	store, err := New("file:cachetest2?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer store.Close()

	entry, err := store.Lookup(context.Background(), "never-stored")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if entry != nil {
		t.Errorf("Lookup() = %+v, want miss", entry)
	}
}

func TestStore_InsertOverwrites(t *testing.T) {
	store, err := New("file:cachetest3?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer store.Close()

	first := testResponse()
	if err := store.Store(context.Background(), "fp-ow", first); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	second := testResponse()
	second.Status = 404
	second.StatusDescription = "Not Found"
	second.Body = []byte("gone")
	if err := store.Store(context.Background(), "fp-ow", second); err != nil {
		t.Fatalf("Store() overwrite error = %v", err)
	}

	entry, err := store.Lookup(context.Background(), "fp-ow")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if entry.Response.Status != 404 {
		t.Errorf("Status = %d, want 404 (last write wins)", entry.Response.Status)
	}
	if string(entry.Response.Body) != "gone" {
		t.Errorf("Body = %q, want %q", entry.Response.Body, "gone")
	}
}

func TestStore_PurgeAll(t *testing.T) {
	store, err := New("file:cachetest4?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer store.Close()

	fingerprints := []string{"fp-a", "fp-b", "fp-c"}
	for _, fp := range fingerprints {
		if err := store.Store(context.Background(), fp, testResponse()); err != nil {
			t.Fatalf("Store(%s) error = %v", fp, err)
		}
	}

	if err := store.PurgeAll(context.Background()); err != nil {
		t.Fatalf("PurgeAll() error = %v", err)
	}

	for _, fp := range fingerprints {
		entry, err := store.Lookup(context.Background(), fp)
		if err != nil {
			t.Fatalf("Lookup(%s) error = %v", fp, err)
		}
		if entry != nil {
			t.Errorf("Lookup(%s) = hit after purge, want miss", fp)
		}
	}
}

func TestOpen_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "cache")

	store, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer store.Close()

	if err := store.Store(context.Background(), "fp-dir", testResponse()); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	entry, err := store.Lookup(context.Background(), "fp-dir")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if entry == nil {
		t.Fatal("Lookup() = miss, want hit")
	}
}
