package stream

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/malekmuhammad848-blip/Smart-Music-App-Cent/model"
)

type memEventStore struct {
	mu     sync.Mutex
	events []*model.PlayEvent
	fail   bool
}

func (s *memEventStore) Create(_ context.Context, event *model.PlayEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("db down")
	}
	s.events = append(s.events, event)
	return nil
}

func (s *memEventStore) all() []*model.PlayEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*model.PlayEvent(nil), s.events...)
}

type memCounter struct {
	mu     sync.Mutex
	counts map[int64]int
}

func (c *memCounter) IncrementPlayCount(_ context.Context, trackID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = map[int64]int{}
	}
	c.counts[trackID]++
	return nil
}

type memRecentList struct {
	mu    sync.Mutex
	lists map[int64][]int64
}

func (l *memRecentList) Push(_ context.Context, userID, trackID int64, capacity int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lists == nil {
		l.lists = map[int64][]int64{}
	}
	list := append([]int64{trackID}, l.lists[userID]...)
	if len(list) > capacity {
		list = list[:capacity]
	}
	l.lists[userID] = list
	return nil
}

func TestRecorderPersistsEvents(t *testing.T) {
	events := &memEventStore{}
	counter := &memCounter{}
	recents := &memRecentList{}
	r := NewRecorder(events, counter, recents, 2)

	r.Record(10, 1)
	r.Record(10, 2)
	r.Record(20, 1)
	r.Stop()

	got := events.all()
	if len(got) != 3 {
		t.Fatalf("persisted %d events, want 3", len(got))
	}
	seen := map[string]bool{}
	for _, e := range got {
		if e.ID == "" {
			t.Error("event has empty ID")
		}
		if seen[e.ID] {
			t.Errorf("duplicate event ID %s", e.ID)
		}
		seen[e.ID] = true
		if e.PlayedAt.IsZero() {
			t.Error("event has zero PlayedAt")
		}
		if e.Completed {
			t.Error("fresh event marked completed")
		}
	}

	counter.mu.Lock()
	if counter.counts[1] != 2 || counter.counts[2] != 1 {
		t.Errorf("play counts = %v, want track1:2 track2:1", counter.counts)
	}
	counter.mu.Unlock()

	recents.mu.Lock()
	if len(recents.lists[10]) != 2 || len(recents.lists[20]) != 1 {
		t.Errorf("recent lists = %v", recents.lists)
	}
	recents.mu.Unlock()
}

func TestRecorderSurvivesStoreFailure(t *testing.T) {
	events := &memEventStore{fail: true}
	counter := &memCounter{}
	recents := &memRecentList{}
	r := NewRecorder(events, counter, recents, 1)

	// A failing event store must not stop the count or recent-list updates.
	r.Record(10, 1)
	r.Stop()

	counter.mu.Lock()
	defer counter.mu.Unlock()
	if counter.counts[1] != 1 {
		t.Errorf("play count = %d, want 1", counter.counts[1])
	}
}

func TestRecorderRecordNeverBlocks(t *testing.T) {
	// No workers draining: fill the queue past capacity and make sure Record
	// returns anyway.
	r := &Recorder{
		events:  &memEventStore{},
		counter: &memCounter{},
		recents: &memRecentList{},
		queue:   make(chan playJob, 4),
	}

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			r.Record(10, int64(i))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Record blocked on a full queue")
	}
}

func TestRecentListCapacityEviction(t *testing.T) {
	recents := &memRecentList{}
	for i := 0; i < RecentListCapacity+20; i++ {
		if err := recents.Push(context.Background(), 10, int64(i), RecentListCapacity); err != nil {
			t.Fatal(err)
		}
	}
	recents.mu.Lock()
	defer recents.mu.Unlock()
	list := recents.lists[10]
	if len(list) != RecentListCapacity {
		t.Fatalf("list length %d, want %d", len(list), RecentListCapacity)
	}
	if list[0] != int64(RecentListCapacity+19) {
		t.Errorf("newest entry %d, want %d", list[0], RecentListCapacity+19)
	}
}
