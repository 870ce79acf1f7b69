package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"
)

type memBlobStore struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{entries: map[string][]byte{}}
}

func (s *memBlobStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.entries[key]
	return data, ok, nil
}

func (s *memBlobStore) Put(_ context.Context, key string, payload []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = payload
	return nil
}

func (s *memBlobStore) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[key]
	return ok
}

type memObjectStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemObjectStorage() *memObjectStorage {
	return &memObjectStorage{objects: map[string][]byte{}}
}

func (s *memObjectStorage) Fetch(_ context.Context, key string) (io.ReadCloser, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, 0, fmt.Errorf("no such object %s", key)
	}
	return io.NopCloser(bytes.NewReader(data)), int64(len(data)), nil
}

func (s *memObjectStorage) Put(_ context.Context, key, _ string, r io.Reader, _ int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

func TestGetSegmentCacheHit(t *testing.T) {
	blobs := newMemBlobStore()
	objects := newMemObjectStorage()
	p := NewSegmentPipeline("ffmpeg", t.TempDir(), 10, 2, blobs, objects)

	payload := []byte("ts-segment-bytes")
	blobs.Put(context.Background(), segmentCacheKey(1, "segment_000.ts"), payload, time.Hour)

	data, contentType, err := p.GetSegment(context.Background(), 1, "segment_000.ts")
	if err != nil {
		t.Fatalf("GetSegment: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Error("cache hit returned wrong bytes")
	}
	if contentType != "video/MP2T" {
		t.Errorf("contentType = %q, want video/MP2T", contentType)
	}
}

func TestGetSegmentObjectStoreFallback(t *testing.T) {
	blobs := newMemBlobStore()
	objects := newMemObjectStorage()
	p := NewSegmentPipeline("ffmpeg", t.TempDir(), 10, 2, blobs, objects)

	payload := []byte("durable-segment")
	objects.Put(context.Background(), segmentObjectKey(1, "segment_001.ts"), "video/MP2T",
		bytes.NewReader(payload), int64(len(payload)))

	data, _, err := p.GetSegment(context.Background(), 1, "segment_001.ts")
	if err != nil {
		t.Fatalf("GetSegment: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Error("fallback returned wrong bytes")
	}

	// The cache backfill runs asynchronously.
	key := segmentCacheKey(1, "segment_001.ts")
	deadline := time.Now().Add(2 * time.Second)
	for !blobs.has(key) {
		if time.Now().After(deadline) {
			t.Fatal("segment never backfilled into the blob cache")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestGetSegmentMissingEverywhere(t *testing.T) {
	p := NewSegmentPipeline("ffmpeg", t.TempDir(), 10, 2, newMemBlobStore(), newMemObjectStorage())
	if _, _, err := p.GetSegment(context.Background(), 1, "segment_009.ts"); err == nil {
		t.Fatal("GetSegment returned no error for a missing segment")
	}
}

func TestSegmentIndex(t *testing.T) {
	tests := []struct {
		name    string
		want    int
		wantErr bool
	}{
		{"segment_000.ts", 0, false},
		{"segment_017.ts", 17, false},
		{"segment_123.ts", 123, false},
		{"playlist.m3u8", 0, true},
		{"segment_.ts", 0, true},
	}
	for _, tt := range tests {
		got, err := segmentIndex(tt.name)
		if tt.wantErr {
			if err == nil {
				t.Errorf("segmentIndex(%q) accepted invalid name", tt.name)
			}
			continue
		}
		if err != nil {
			t.Errorf("segmentIndex(%q): %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("segmentIndex(%q) = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestSegmentContentType(t *testing.T) {
	if got := segmentContentType("segment_000.ts"); got != "video/MP2T" {
		t.Errorf("segmentContentType(ts) = %q", got)
	}
	if got := segmentContentType("playlist.m3u8"); got != "application/vnd.apple.mpegurl" {
		t.Errorf("segmentContentType(m3u8) = %q", got)
	}
}
