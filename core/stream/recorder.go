package stream

import (
	"context"
	"sync"
	"time"

	"github.com/malekmuhammad848-blip/Smart-Music-App-Cent/logger"
	"github.com/malekmuhammad848-blip/Smart-Music-App-Cent/model"

	"github.com/google/uuid"
)

// RecentListCapacity bounds the per-user recently-played list. Oldest
// entries are evicted first.
const RecentListCapacity = 100

// PlayEventStore persists playback telemetry.
type PlayEventStore interface {
	Create(ctx context.Context, event *model.PlayEvent) error
}

// PlayCounter bumps a track's aggregate play count.
type PlayCounter interface {
	IncrementPlayCount(ctx context.Context, trackID int64) error
}

// RecentList maintains the bounded most-recently-played list per user.
type RecentList interface {
	Push(ctx context.Context, userID, trackID int64, capacity int) error
}

// Recorder persists play events off the request's critical path. Record is
// fire-and-forget: it never blocks or delays the stream response, and a lost
// event on shutdown is acceptable.
type Recorder struct {
	events  PlayEventStore
	counter PlayCounter
	recents RecentList

	queue    chan playJob
	stopOnce sync.Once
	wg       sync.WaitGroup
}

type playJob struct {
	userID  int64
	trackID int64
	at      time.Time
}

// NewRecorder starts a Recorder with the given number of worker goroutines.
func NewRecorder(events PlayEventStore, counter PlayCounter, recents RecentList, workers int) *Recorder {
	if workers <= 0 {
		workers = 2
	}
	r := &Recorder{
		events:  events,
		counter: counter,
		recents: recents,
		queue:   make(chan playJob, 256),
	}
	for i := 0; i < workers; i++ {
		r.wg.Add(1)
		go r.worker()
	}
	return r
}

// Record enqueues a play event. If the queue is full the event is dropped
// with a warning; telemetry loss must never fail or delay a stream.
func (r *Recorder) Record(userID, trackID int64) {
	job := playJob{userID: userID, trackID: trackID, at: time.Now()}
	select {
	case r.queue <- job:
	default:
		logger.Warn("play event queue full, dropping event",
			logger.Int64("userId", userID),
			logger.Int64("trackId", trackID))
	}
}

// Stop drains the queue and stops the workers.
func (r *Recorder) Stop() {
	r.stopOnce.Do(func() {
		close(r.queue)
	})
	r.wg.Wait()
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for job := range r.queue {
		r.process(job)
	}
}

func (r *Recorder) process(job playJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	event := &model.PlayEvent{
		ID:        uuid.NewString(),
		UserID:    job.userID,
		TrackID:   job.trackID,
		PlayedAt:  job.at,
		Completed: false,
	}
	if err := r.events.Create(ctx, event); err != nil {
		logger.Warn("failed to persist play event",
			logger.Int64("userId", job.userID),
			logger.Int64("trackId", job.trackID),
			logger.ErrorField(err))
	}

	if err := r.counter.IncrementPlayCount(ctx, job.trackID); err != nil {
		logger.Warn("failed to increment play count",
			logger.Int64("trackId", job.trackID),
			logger.ErrorField(err))
	}

	if err := r.recents.Push(ctx, job.userID, job.trackID, RecentListCapacity); err != nil {
		logger.Warn("failed to update recently played list",
			logger.Int64("userId", job.userID),
			logger.ErrorField(err))
	}
}
