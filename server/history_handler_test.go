package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/malekmuhammad848-blip/Smart-Music-App-Cent/model"

	"github.com/gorilla/mux"
)

type stubRecentSource struct {
	ids []int64
	err error
}

func (s *stubRecentSource) Recent(_ context.Context, _ int64, _ int) ([]int64, error) {
	return s.ids, s.err
}

type stubPlayHistory struct {
	events    []model.PlayEvent
	completed []string
	err       error
}

func (s *stubPlayHistory) MarkCompleted(_ context.Context, eventID string) error {
	if s.err != nil {
		return s.err
	}
	s.completed = append(s.completed, eventID)
	return nil
}

func (s *stubPlayHistory) RecentByUser(_ context.Context, _ int64, _ int) ([]model.PlayEvent, error) {
	return s.events, s.err
}

func serveRecent(h *HistoryHandler, userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/me/recent", nil)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	rec := httptest.NewRecorder()
	h.HandleRecent(rec, req)
	return rec
}

func decodeTrackIDs(t *testing.T, rec *httptest.ResponseRecorder) []int64 {
	t.Helper()
	var body struct {
		TrackIDs []int64 `json:"trackIds"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return body.TrackIDs
}

func TestHandleRecentFromCache(t *testing.T) {
	h := NewHistoryHandler(&stubRecentSource{ids: []int64{3, 2, 1}}, &stubPlayHistory{})

	rec := serveRecent(h, "7")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	ids := decodeTrackIDs(t, rec)
	if len(ids) != 3 || ids[0] != 3 || ids[2] != 1 {
		t.Errorf("trackIds = %v, want [3 2 1]", ids)
	}
}

func TestHandleRecentFallsBackToHistory(t *testing.T) {
	history := &stubPlayHistory{events: []model.PlayEvent{
		{ID: "a", UserID: 7, TrackID: 9, PlayedAt: time.Now()},
		{ID: "b", UserID: 7, TrackID: 4, PlayedAt: time.Now()},
	}}

	// Both an empty list and a Redis failure fall through to the database.
	for _, recents := range []*stubRecentSource{
		{},
		{err: errors.New("redis down")},
	} {
		h := NewHistoryHandler(recents, history)
		rec := serveRecent(h, "7")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		ids := decodeTrackIDs(t, rec)
		if len(ids) != 2 || ids[0] != 9 || ids[1] != 4 {
			t.Errorf("trackIds = %v, want [9 4]", ids)
		}
	}
}

func TestHandleRecentRequiresIdentity(t *testing.T) {
	h := NewHistoryHandler(&stubRecentSource{}, &stubPlayHistory{})
	if rec := serveRecent(h, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestHandleCompleted(t *testing.T) {
	history := &stubPlayHistory{}
	h := NewHistoryHandler(&stubRecentSource{}, history)

	router := mux.NewRouter()
	router.HandleFunc("/api/me/plays/{event_id}/complete", h.HandleCompleted).Methods(http.MethodPost)

	req := httptest.NewRequest(http.MethodPost, "/api/me/plays/ev-123/complete", nil)
	req.Header.Set("X-User-ID", "7")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if len(history.completed) != 1 || history.completed[0] != "ev-123" {
		t.Errorf("completed = %v, want [ev-123]", history.completed)
	}
}
