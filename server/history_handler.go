package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/malekmuhammad848-blip/Smart-Music-App-Cent/logger"
	"github.com/malekmuhammad848-blip/Smart-Music-App-Cent/model"

	"github.com/gorilla/mux"
)

// recentLimit caps how many entries a single history read returns.
const recentLimit = 50

// RecentSource reads the hot recently-played list.
type RecentSource interface {
	Recent(ctx context.Context, userID int64, limit int) ([]int64, error)
}

// PlayHistory reads and updates persisted play events.
type PlayHistory interface {
	MarkCompleted(ctx context.Context, eventID string) error
	RecentByUser(ctx context.Context, userID int64, limit int) ([]model.PlayEvent, error)
}

// HistoryHandler serves playback history: the recently-played list and the
// playback-completed signal.
type HistoryHandler struct {
	recents RecentSource
	history PlayHistory
}

// NewHistoryHandler creates a HistoryHandler.
func NewHistoryHandler(recents RecentSource, history PlayHistory) *HistoryHandler {
	return &HistoryHandler{recents: recents, history: history}
}

// HandleRecent serves GET /api/me/recent. The Redis list is the fast path;
// when it is empty or unreachable the persisted play events back it up.
func (h *HistoryHandler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	userID, err := headerUserID(r)
	if err != nil {
		http.Error(w, "missing user identity", http.StatusUnauthorized)
		return
	}

	ids, err := h.recents.Recent(r.Context(), userID, recentLimit)
	if err != nil || len(ids) == 0 {
		if err != nil {
			logger.Warn("recent list read failed, falling back to history",
				logger.Int64("userId", userID),
				logger.ErrorField(err))
		}
		events, herr := h.history.RecentByUser(r.Context(), userID, recentLimit)
		if herr != nil {
			http.Error(w, "failed to load listening history", http.StatusInternalServerError)
			return
		}
		ids = make([]int64, 0, len(events))
		for _, e := range events {
			ids = append(ids, e.TrackID)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"trackIds": ids})
}

// HandleCompleted serves POST /api/me/plays/{event_id}/complete, flipping
// the completed flag on a play event when the client reaches the end.
func (h *HistoryHandler) HandleCompleted(w http.ResponseWriter, r *http.Request) {
	if _, err := headerUserID(r); err != nil {
		http.Error(w, "missing user identity", http.StatusUnauthorized)
		return
	}
	eventID := mux.Vars(r)["event_id"]
	if eventID == "" {
		http.Error(w, "missing event id", http.StatusBadRequest)
		return
	}

	if err := h.history.MarkCompleted(r.Context(), eventID); err != nil {
		logger.Warn("failed to mark play event completed",
			logger.String("eventId", eventID),
			logger.ErrorField(err))
		http.Error(w, "failed to update play event", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
