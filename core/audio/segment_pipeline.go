package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/malekmuhammad848-blip/Smart-Music-App-Cent/logger"

	"github.com/fsnotify/fsnotify"
)

// BlobStore is the hot cache for finished media segments.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, payload []byte, ttl time.Duration) error
}

// ObjectStorage is the durable store segments are backed up to and sources
// are fetched from.
type ObjectStorage interface {
	Fetch(ctx context.Context, key string) (io.ReadCloser, int64, error)
	Put(ctx context.Context, key, contentType string, r io.Reader, size int64) error
}

const segmentTTL = time.Hour

// SegmentPipeline encodes a track into HLS media segments and pushes each
// finished segment to the blob cache and object store as it appears, so the
// first segments are servable well before the whole encode completes.
//
// Flow: ffmpeg writes segments to a scratch dir, an fsnotify watcher feeds a
// worker pool, workers upload. A final directory scan picks up anything the
// watcher missed.
type SegmentPipeline struct {
	ffmpegPath  string
	scratchDir  string
	segmentTime int
	workerCount int

	blobs   BlobStore
	objects ObjectStorage
}

// NewSegmentPipeline creates a segment pipeline. workers <= 0 selects a
// small default.
func NewSegmentPipeline(ffmpegPath, scratchDir string, segmentTime, workers int, blobs BlobStore, objects ObjectStorage) *SegmentPipeline {
	if segmentTime <= 0 {
		segmentTime = 10
	}
	if workers <= 0 {
		workers = 4
	}
	return &SegmentPipeline{
		ffmpegPath:  ffmpegPath,
		scratchDir:  scratchDir,
		segmentTime: segmentTime,
		workerCount: workers,
		blobs:       blobs,
		objects:     objects,
	}
}

func segmentCacheKey(trackID int64, name string) string {
	return fmt.Sprintf("hls:segment:%d:%s", trackID, name)
}

func segmentObjectKey(trackID int64, name string) string {
	return fmt.Sprintf("streams/%d/%s", trackID, name)
}

// Encode downloads the source object, runs the HLS encode and uploads every
// segment. It returns once all segments are stored.
func (p *SegmentPipeline) Encode(ctx context.Context, trackID int64, sourceKey string) error {
	start := time.Now()
	tempDir := filepath.Join(p.scratchDir, "streams", strconv.FormatInt(trackID, 10))
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return fmt.Errorf("creating scratch dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	inputPath, err := p.downloadSource(ctx, sourceKey, tempDir)
	if err != nil {
		return err
	}

	taskChan := make(chan string, 64)
	var wg sync.WaitGroup
	for i := 0; i < p.workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range taskChan {
				p.storeSegment(ctx, trackID, path)
			}
		}()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		close(taskChan)
		wg.Wait()
		return fmt.Errorf("creating segment watcher: %w", err)
	}
	if err := watcher.Add(tempDir); err != nil {
		watcher.Close()
		close(taskChan)
		wg.Wait()
		return fmt.Errorf("watching scratch dir: %w", err)
	}

	seen := &sync.Map{}
	watcherDone := make(chan struct{})
	go func() {
		defer close(watcherDone)
		p.watchSegments(ctx, watcher, taskChan, seen)
	}()

	encodeErr := p.runHLSEncode(ctx, inputPath, tempDir, trackID)

	// Give the watcher a moment to drain the last create events.
	time.Sleep(200 * time.Millisecond)
	watcher.Close()
	<-watcherDone

	// Final scan catches segments the watcher missed, including the last
	// one, which only becomes complete when ffmpeg exits.
	p.scanRemaining(tempDir, taskChan, seen)

	close(taskChan)
	wg.Wait()

	if encodeErr != nil {
		return encodeErr
	}

	logger.Info("segment encode finished",
		logger.Int64("trackId", trackID),
		logger.Duration("totalTime", time.Since(start)))
	return nil
}

func (p *SegmentPipeline) downloadSource(ctx context.Context, sourceKey, tempDir string) (string, error) {
	rc, _, err := p.objects.Fetch(ctx, sourceKey)
	if err != nil {
		return "", fmt.Errorf("fetching source %s: %w", sourceKey, err)
	}
	defer rc.Close()

	inputPath := filepath.Join(tempDir, "source"+filepath.Ext(sourceKey))
	f, err := os.Create(inputPath)
	if err != nil {
		return "", fmt.Errorf("creating source scratch file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, rc); err != nil {
		return "", fmt.Errorf("downloading source %s: %w", sourceKey, err)
	}
	return inputPath, nil
}

// runHLSEncode shells out to ffmpeg for the actual container re-encode.
func (p *SegmentPipeline) runHLSEncode(ctx context.Context, inputPath, tempDir string, trackID int64) error {
	outputM3U8 := filepath.Join(tempDir, "playlist.m3u8")
	segmentPattern := filepath.Join(tempDir, "segment_%03d.ts")

	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-i", inputPath,
		"-c:a", "aac",
		"-b:a", "128k",
		"-hls_time", strconv.Itoa(p.segmentTime),
		"-hls_playlist_type", "vod",
		"-hls_list_size", "0",
		"-hls_segment_filename", segmentPattern,
		"-hls_base_url", fmt.Sprintf("/stream/hls/%d/", trackID),
		"-f", "hls",
		outputM3U8,
	}

	cmd := exec.CommandContext(ctx, p.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg hls encode failed: %w (%s)", err, truncate(stderr.String(), 512))
	}
	return nil
}

// watchSegments forwards completed segments to the workers. ffmpeg writes
// segments sequentially, so the appearance of segment N means segment N-1 is
// complete.
func (p *SegmentPipeline) watchSegments(ctx context.Context, watcher *fsnotify.Watcher, taskChan chan<- string, seen *sync.Map) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) || !strings.HasSuffix(event.Name, ".ts") {
				continue
			}
			idx, err := segmentIndex(filepath.Base(event.Name))
			if err != nil || idx == 0 {
				continue
			}
			prev := filepath.Join(filepath.Dir(event.Name), fmt.Sprintf("segment_%03d.ts", idx-1))
			if _, loaded := seen.LoadOrStore(prev, true); !loaded {
				taskChan <- prev
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("segment watcher error", logger.ErrorField(err))
		}
	}
}

func (p *SegmentPipeline) scanRemaining(tempDir string, taskChan chan<- string, seen *sync.Map) {
	files, err := filepath.Glob(filepath.Join(tempDir, "*.ts"))
	if err != nil {
		logger.Warn("final segment scan failed", logger.ErrorField(err))
		return
	}
	for _, f := range files {
		if _, loaded := seen.LoadOrStore(f, true); !loaded {
			taskChan <- f
		}
	}
}

func (p *SegmentPipeline) storeSegment(ctx context.Context, trackID int64, path string) {
	data, err := os.ReadFile(path)
	if err != nil || len(data) == 0 {
		logger.Warn("failed to read finished segment",
			logger.String("path", path),
			logger.ErrorField(err))
		return
	}
	name := filepath.Base(path)

	if err := p.blobs.Put(ctx, segmentCacheKey(trackID, name), data, segmentTTL); err != nil {
		logger.Warn("failed to cache segment",
			logger.Int64("trackId", trackID),
			logger.String("segment", name),
			logger.ErrorField(err))
	}

	if err := p.objects.Put(ctx, segmentObjectKey(trackID, name), "video/MP2T", bytes.NewReader(data), int64(len(data))); err != nil {
		logger.Warn("failed to upload segment",
			logger.Int64("trackId", trackID),
			logger.String("segment", name),
			logger.ErrorField(err))
	}
}

// GetSegment serves one media segment: blob cache first, object store
// second, with an async cache backfill on an object-store hit.
func (p *SegmentPipeline) GetSegment(ctx context.Context, trackID int64, name string) ([]byte, string, error) {
	cacheKey := segmentCacheKey(trackID, name)
	if data, ok, err := p.blobs.Get(ctx, cacheKey); err == nil && ok && len(data) > 0 {
		return data, segmentContentType(name), nil
	}

	rc, _, err := p.objects.Fetch(ctx, segmentObjectKey(trackID, name))
	if err != nil {
		return nil, "", fmt.Errorf("segment %s not found for track %d: %w", name, trackID, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, "", fmt.Errorf("reading segment %s: %w", name, err)
	}

	go func() {
		bctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := p.blobs.Put(bctx, cacheKey, data, segmentTTL); err != nil {
			logger.Warn("segment cache backfill failed",
				logger.Int64("trackId", trackID),
				logger.String("segment", name),
				logger.ErrorField(err))
		}
	}()

	return data, segmentContentType(name), nil
}

// segmentIndex parses the numeric index out of segment_%03d.ts.
func segmentIndex(name string) (int, error) {
	s := strings.TrimSuffix(strings.TrimPrefix(name, "segment_"), ".ts")
	return strconv.Atoi(s)
}

func segmentContentType(name string) string {
	if strings.HasSuffix(name, ".m3u8") {
		return "application/vnd.apple.mpegurl"
	}
	return "video/MP2T"
}
