package stream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/malekmuhammad848-blip/Smart-Music-App-Cent/model"
)

type fakeMetadata struct {
	tracks map[int64]*model.Track
}

func (f *fakeMetadata) Resolve(_ context.Context, trackID int64) (*model.Track, error) {
	return f.tracks[trackID], nil
}

type fakeUsers struct {
	premium map[int64]bool
	country map[int64]string
}

func (f *fakeUsers) IsPremium(_ context.Context, userID int64) (bool, error) {
	return f.premium[userID], nil
}

func (f *fakeUsers) Country(_ context.Context, userID int64) (string, error) {
	return f.country[userID], nil
}

type fakeRestrictions struct {
	rules map[int64]*model.TrackRestriction
}

func (f *fakeRestrictions) Get(_ context.Context, trackID int64) (*model.TrackRestriction, error) {
	return f.rules[trackID], nil
}

type fakeObjects struct {
	data    map[string][]byte
	fetches int64
}

func (f *fakeObjects) Fetch(_ context.Context, key string) (io.ReadCloser, int64, error) {
	atomic.AddInt64(&f.fetches, 1)
	data, ok := f.data[key]
	if !ok {
		return nil, 0, fmt.Errorf("no such object %s", key)
	}
	return io.NopCloser(bytes.NewReader(data)), int64(len(data)), nil
}

func (f *fakeObjects) FetchRange(_ context.Context, key string, start, end int64) (io.ReadCloser, int64, int64, error) {
	atomic.AddInt64(&f.fetches, 1)
	data, ok := f.data[key]
	if !ok {
		return nil, 0, 0, fmt.Errorf("no such object %s", key)
	}
	total := int64(len(data))
	if end < 0 || end >= total {
		end = total - 1
	}
	if start > end {
		return io.NopCloser(bytes.NewReader(nil)), 0, total, nil
	}
	part := data[start : end+1]
	return io.NopCloser(bytes.NewReader(part)), int64(len(part)), total, nil
}

type memCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{entries: map[string][]byte{}}
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	payload, ok := c.entries[key]
	return payload, ok, nil
}

func (c *memCache) Put(_ context.Context, key string, payload []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = payload
	return nil
}

// fakeTranscoder produces deterministic output derived from its input and
// counts invocations.
type fakeTranscoder struct {
	calls int64
	delay time.Duration
}

func (t *fakeTranscoder) Transcode(_ context.Context, src io.Reader, _ model.AudioFormat, bitrate int) (io.ReadCloser, error) {
	atomic.AddInt64(&t.calls, 1)
	if t.delay > 0 {
		time.Sleep(t.delay)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}
	out := append([]byte(fmt.Sprintf("mp3@%d:", bitrate)), data...)
	return io.NopCloser(bytes.NewReader(out)), nil
}

type fakeProber struct {
	calls    int64
	duration float64
	err      error
}

func (p *fakeProber) ProbeDuration(_ context.Context, src io.Reader) (float64, error) {
	atomic.AddInt64(&p.calls, 1)
	io.Copy(io.Discard, src)
	return p.duration, p.err
}

type fakeWaveform struct {
	calls    int64
	envelope []float64
}

func (w *fakeWaveform) Extract(_ context.Context, src io.Reader, _ model.AudioFormat, _ int) ([]float64, error) {
	atomic.AddInt64(&w.calls, 1)
	io.Copy(io.Discard, src)
	return w.envelope, nil
}

type fakeEncoder struct {
	started chan int64
}

func (e *fakeEncoder) Encode(_ context.Context, trackID int64, _ string) error {
	e.started <- trackID
	return nil
}

type fakeRecorder struct {
	mu    sync.Mutex
	plays []int64
}

func (r *fakeRecorder) Record(_, trackID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plays = append(r.plays, trackID)
}

func (r *fakeRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.plays)
}

// testHarness bundles a fully wired orchestrator over fakes.
type testHarness struct {
	metadata     *fakeMetadata
	users        *fakeUsers
	restrictions *fakeRestrictions
	objects      *fakeObjects
	cache        *memCache
	transcoder   *fakeTranscoder
	prober       *fakeProber
	waveform     *fakeWaveform
	encoder      *fakeEncoder
	recorder     *fakeRecorder
	orch         *Orchestrator
}

func newHarness() *testHarness {
	h := &testHarness{
		metadata:     &fakeMetadata{tracks: map[int64]*model.Track{}},
		users:        &fakeUsers{premium: map[int64]bool{}, country: map[int64]string{}},
		restrictions: &fakeRestrictions{rules: map[int64]*model.TrackRestriction{}},
		objects:      &fakeObjects{data: map[string][]byte{}},
		cache:        newMemCache(),
		transcoder:   &fakeTranscoder{},
		prober:       &fakeProber{},
		waveform:     &fakeWaveform{envelope: []float64{0, 50, 100}},
		encoder:      &fakeEncoder{started: make(chan int64, 4)},
		recorder:     &fakeRecorder{},
	}
	validator := NewAccessValidator(h.metadata, h.users, h.restrictions)
	h.orch = NewOrchestrator(validator, h.metadata, h.objects, h.cache,
		h.transcoder, h.prober, h.waveform, h.encoder, h.recorder, Config{})
	return h
}

func (h *testHarness) addTrack(id int64, format model.AudioFormat, duration float64, source []byte) *model.Track {
	track := &model.Track{
		ID:       id,
		Title:    fmt.Sprintf("track-%d", id),
		FileName: "audio.bin",
		Format:   format,
		Duration: duration,
	}
	h.metadata.tracks[id] = track
	h.objects.data[track.SourceKey()] = source
	return track
}
