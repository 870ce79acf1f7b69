package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/malekmuhammad848-blip/Smart-Music-App-Cent/core/audio"
	"github.com/malekmuhammad848-blip/Smart-Music-App-Cent/logger"
	"github.com/malekmuhammad848-blip/Smart-Music-App-Cent/model"

	"golang.org/x/sync/singleflight"
)

// Request lifecycle states, carried in logs for observability.
type state string

const (
	stateValidating  state = "validating"
	stateCacheLookup state = "cache_lookup"
	stateCacheHit    state = "cache_hit"
	stateTranscoding state = "transcoding"
	stateSegmenting  state = "segmenting"
	stateServing     state = "serving"
	stateDenied      state = "denied"
	stateFailed      state = "failed"
)

// PlayRecorder receives the fire-and-forget playback side effect.
type PlayRecorder interface {
	Record(userID, trackID int64)
}

// Config tunes the orchestrator's cache TTLs and derived-artifact shapes.
type Config struct {
	StreamTTL      time.Duration
	HLSTTL         time.Duration
	WaveformTTL    time.Duration
	SegmentTime    int // seconds
	WaveformPoints int
	// FlightWait bounds how long a request waits on another request's
	// in-flight recomputation of the same key before recomputing
	// independently.
	FlightWait time.Duration
}

func (c *Config) applyDefaults() {
	if c.StreamTTL <= 0 {
		c.StreamTTL = time.Hour
	}
	if c.HLSTTL <= 0 {
		c.HLSTTL = time.Hour
	}
	if c.WaveformTTL <= 0 {
		c.WaveformTTL = 24 * time.Hour
	}
	if c.SegmentTime <= 0 {
		c.SegmentTime = 10
	}
	if c.WaveformPoints <= 0 {
		c.WaveformPoints = audio.DefaultWaveformPoints
	}
	if c.FlightWait <= 0 {
		c.FlightWait = 30 * time.Second
	}
}

// Orchestrator is the entry point of the delivery core. It composes access
// validation, the artifact cache, the transcoding and segmenting pipelines
// and playback telemetry per request.
type Orchestrator struct {
	validator  *AccessValidator
	metadata   MetadataStore
	objects    ObjectStore
	cache      ArtifactCache
	transcoder Transcoder
	prober     DurationProber
	waveform   WaveformExtractor
	segments   SegmentEncoder
	recorder   PlayRecorder
	cfg        Config

	// flight collapses concurrent recomputations of the same cache key so
	// a burst of misses triggers exactly one pipeline run. This is a
	// correctness requirement, not an optimization: without it a popular
	// uncached track causes a transcode stampede.
	flight singleflight.Group
}

// NewOrchestrator wires the delivery core. segments may be nil when HLS
// media encoding runs elsewhere; recorder may be nil to disable telemetry;
// prober may be nil when track durations are always stored.
func NewOrchestrator(
	validator *AccessValidator,
	metadata MetadataStore,
	objects ObjectStore,
	cache ArtifactCache,
	transcoder Transcoder,
	prober DurationProber,
	waveform WaveformExtractor,
	segments SegmentEncoder,
	recorder PlayRecorder,
	cfg Config,
) *Orchestrator {
	cfg.applyDefaults()
	return &Orchestrator{
		validator:  validator,
		metadata:   metadata,
		objects:    objects,
		cache:      cache,
		transcoder: transcoder,
		prober:     prober,
		waveform:   waveform,
		segments:   segments,
		recorder:   recorder,
		cfg:        cfg,
	}
}

func streamCacheKey(trackID int64, quality model.Quality) string {
	return fmt.Sprintf("stream:%d:%s", trackID, quality)
}

func hlsCacheKey(trackID int64) string {
	return fmt.Sprintf("hls:%d", trackID)
}

func waveformCacheKey(trackID int64) string {
	return fmt.Sprintf("waveform:%d", trackID)
}

// StreamTrack produces a byte stream for a track at the requested quality.
// MP3 sources and lossless requests are served straight from the object
// store; everything else goes through the cached transcode path. rng is an
// optional byte range applied to the output.
func (o *Orchestrator) StreamTrack(ctx context.Context, trackID, userID int64, quality model.Quality, rng *ByteRange) (*Response, error) {
	o.logState(stateValidating, trackID, userID)
	decision, track, err := o.validator.Evaluate(ctx, userID, trackID, quality)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		o.logState(stateDenied, trackID, userID)
		return nil, DenialError(decision)
	}

	// Pass-through: lossless requests and MP3 sources need no transcode.
	if quality == model.QualityLossless || track.Format == model.FormatMP3 {
		resp, err := o.serveDirect(ctx, track, quality, rng)
		if err != nil {
			o.logState(stateFailed, trackID, userID)
			return nil, err
		}
		o.serve(trackID, userID)
		return resp, nil
	}

	key := streamCacheKey(trackID, quality)

	o.logState(stateCacheLookup, trackID, userID)
	if payload, ok := o.cacheGet(ctx, key); ok {
		o.logState(stateCacheHit, trackID, userID)
		o.serve(trackID, userID)
		return sliceArtifact(payload, rng, "audio/mpeg", quality.Bitrate()), nil
	}

	o.logState(stateTranscoding, trackID, userID)
	payload, err := o.singleFlight(ctx, key, func(ctx context.Context) ([]byte, error) {
		return o.transcodeToCache(ctx, track, quality, key)
	})
	if err != nil {
		o.logState(stateFailed, trackID, userID)
		return nil, err
	}

	o.serve(trackID, userID)
	return sliceArtifact(payload, rng, "audio/mpeg", quality.Bitrate()), nil
}

// GenerateHLS returns the VOD playlist for a track, building it (and kicking
// off segment encoding) on first request.
func (o *Orchestrator) GenerateHLS(ctx context.Context, trackID, userID int64) (*audio.Manifest, error) {
	o.logState(stateValidating, trackID, userID)
	// HLS renditions are encoded at medium quality, so no premium gate.
	decision, track, err := o.validator.Evaluate(ctx, userID, trackID, model.QualityMedium)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		o.logState(stateDenied, trackID, userID)
		return nil, DenialError(decision)
	}

	key := hlsCacheKey(trackID)

	o.logState(stateCacheLookup, trackID, userID)
	if payload, ok := o.cacheGet(ctx, key); ok {
		if m, err := audio.ParseManifest(trackID, string(payload)); err == nil {
			o.logState(stateCacheHit, trackID, userID)
			return m, nil
		}
		logger.Warn("cached manifest unparsable, rebuilding",
			logger.Int64("trackId", trackID))
	}

	o.logState(stateSegmenting, trackID, userID)
	payload, err := o.singleFlight(ctx, key, func(ctx context.Context) ([]byte, error) {
		return o.buildManifest(ctx, track, key)
	})
	if err != nil {
		o.logState(stateFailed, trackID, userID)
		return nil, err
	}

	return audio.ParseManifest(trackID, string(payload))
}

// GetWaveform returns the amplitude envelope for a track. Waveforms carry no
// access restrictions; they are served to anyone who can see the track.
func (o *Orchestrator) GetWaveform(ctx context.Context, trackID int64) ([]float64, error) {
	track, err := o.metadata.Resolve(ctx, trackID)
	if err != nil {
		return nil, fmt.Errorf("resolving track %d: %w", trackID, err)
	}
	if track == nil {
		return nil, ErrTrackNotFound
	}

	key := waveformCacheKey(trackID)
	if payload, ok := o.cacheGet(ctx, key); ok {
		var envelope []float64
		if err := json.Unmarshal(payload, &envelope); err == nil {
			return envelope, nil
		}
		logger.Warn("cached waveform unparsable, recomputing",
			logger.Int64("trackId", trackID))
	}

	payload, err := o.singleFlight(ctx, key, func(ctx context.Context) ([]byte, error) {
		return o.computeWaveform(ctx, track, key)
	})
	if err != nil {
		return nil, err
	}

	var envelope []float64
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("decoding waveform payload: %w", err)
	}
	return envelope, nil
}

// serveDirect streams the source object unmodified, honoring byte ranges at
// the object store.
func (o *Orchestrator) serveDirect(ctx context.Context, track *model.Track, quality model.Quality, rng *ByteRange) (*Response, error) {
	var (
		body  io.ReadCloser
		size  int64
		total int64
		err   error
	)
	if rng != nil {
		body, size, total, err = o.objects.FetchRange(ctx, track.SourceKey(), rng.Start, rng.End)
	} else {
		body, size, err = o.objects.Fetch(ctx, track.SourceKey())
		total = size
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	return &Response{
		Body:          body,
		ContentType:   track.Format.ContentType(),
		ContentLength: size,
		TotalSize:     total,
		Bitrate:       quality.Bitrate(),
	}, nil
}

// transcodeToCache runs the full transcode for a cache miss and stores the
// result. It only writes the cache entry after the pipeline has finished
// cleanly, so an aborted transcode never leaves a partial artifact behind.
func (o *Orchestrator) transcodeToCache(ctx context.Context, track *model.Track, quality model.Quality, key string) ([]byte, error) {
	src, _, err := o.objects.Fetch(ctx, track.SourceKey())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer src.Close()

	out, err := o.transcoder.Transcode(ctx, src, track.Format, quality.Bitrate())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTranscodeFailed, err)
	}
	defer out.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTranscodeFailed, err)
	}

	payload := buf.Bytes()
	o.cachePut(ctx, key, payload, o.cfg.StreamTTL)
	return payload, nil
}

// buildManifest constructs the deterministic playlist and launches the
// background segment encode that produces the media it refers to.
func (o *Orchestrator) buildManifest(ctx context.Context, track *model.Track, key string) ([]byte, error) {
	duration := track.Duration
	if duration <= 0 && o.prober != nil {
		probed, err := o.probeDuration(ctx, track)
		if err != nil {
			return nil, err
		}
		duration = probed
	}
	if duration <= 0 {
		return nil, fmt.Errorf("%w: track %d has no known duration", ErrSourceUnavailable, track.ID)
	}

	m := audio.BuildManifest(track.ID, duration, o.cfg.SegmentTime)
	payload := []byte(m.M3U8())

	if o.segments != nil {
		// Segment media is produced off the request path; the manifest
		// is servable immediately and players poll for segments.
		trackID, sourceKey := track.ID, track.SourceKey()
		go func() {
			ectx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
			defer cancel()
			if err := o.segments.Encode(ectx, trackID, sourceKey); err != nil {
				logger.Error("hls segment encode failed",
					logger.Int64("trackId", trackID),
					logger.ErrorField(err))
			}
		}()
	}

	o.cachePut(ctx, key, payload, o.cfg.HLSTTL)
	return payload, nil
}

// probeDuration reads the duration off the stored source when metadata
// lacks one.
func (o *Orchestrator) probeDuration(ctx context.Context, track *model.Track) (float64, error) {
	src, _, err := o.objects.Fetch(ctx, track.SourceKey())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer src.Close()

	d, err := o.prober.ProbeDuration(ctx, src)
	if err != nil {
		return 0, fmt.Errorf("%w: probing duration for track %d: %v", ErrSourceUnavailable, track.ID, err)
	}
	return d, nil
}

func (o *Orchestrator) computeWaveform(ctx context.Context, track *model.Track, key string) ([]byte, error) {
	src, _, err := o.objects.Fetch(ctx, track.SourceKey())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer src.Close()

	envelope, err := o.waveform.Extract(ctx, src, track.Format, o.cfg.WaveformPoints)
	if err != nil {
		return nil, fmt.Errorf("extracting waveform for track %d: %w", track.ID, err)
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("encoding waveform: %w", err)
	}

	o.cachePut(ctx, key, payload, o.cfg.WaveformTTL)
	return payload, nil
}

// flightComputeTimeout bounds the shared recomputation once it is detached
// from the request that started it.
const flightComputeTimeout = 15 * time.Minute

// singleFlight runs compute under the per-key flight group. Followers wait
// for the leader's result up to FlightWait, then recompute independently
// rather than queue forever behind a stuck pipeline.
func (o *Orchestrator) singleFlight(ctx context.Context, key string, compute func(context.Context) ([]byte, error)) ([]byte, error) {
	ch := o.flight.DoChan(key, func() (interface{}, error) {
		// The result is shared by every request on this key, so the
		// pipeline must not die with whichever request happened to start
		// it. Detach from the initiating request and bound the run on its
		// own clock.
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flightComputeTimeout)
		defer cancel()
		return compute(fctx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(o.cfg.FlightWait):
		logger.Warn("in-flight recomputation too slow, computing independently",
			logger.String("key", key))
		return compute(ctx)
	}
}

// cacheGet treats any cache failure as a miss; the cache is an optimization,
// never a correctness dependency.
func (o *Orchestrator) cacheGet(ctx context.Context, key string) ([]byte, bool) {
	payload, ok, err := o.cache.Get(ctx, key)
	if err != nil {
		logger.Warn("artifact cache read failed, degrading to recompute",
			logger.String("key", key),
			logger.ErrorField(err))
		return nil, false
	}
	return payload, ok
}

func (o *Orchestrator) cachePut(ctx context.Context, key string, payload []byte, ttl time.Duration) {
	if err := o.cache.Put(ctx, key, payload, ttl); err != nil {
		logger.Warn("artifact cache write failed",
			logger.String("key", key),
			logger.Int("size", len(payload)),
			logger.ErrorField(err))
	}
}

// serve fires the playback side effect; it never gates the response.
func (o *Orchestrator) serve(trackID, userID int64) {
	o.logState(stateServing, trackID, userID)
	if o.recorder != nil {
		o.recorder.Record(userID, trackID)
	}
}

func (o *Orchestrator) logState(s state, trackID, userID int64) {
	logger.Debug("stream request state",
		logger.String("state", string(s)),
		logger.Int64("trackId", trackID),
		logger.Int64("userId", userID))
}
