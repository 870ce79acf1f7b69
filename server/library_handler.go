package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"

	"github.com/malekmuhammad848-blip/Smart-Music-App-Cent/logger"
	"github.com/malekmuhammad848-blip/Smart-Music-App-Cent/model"
	"github.com/malekmuhammad848-blip/Smart-Music-App-Cent/repository"
)

// maxUploadMemory is the in-memory buffer for multipart parsing; larger
// uploads spill to disk.
const maxUploadMemory = 32 << 20

// ObjectWriter covers the uploads and removals the library needs.
type ObjectWriter interface {
	Put(ctx context.Context, key, contentType string, r io.Reader, size int64) error
	Remove(ctx context.Context, key string) error
}

// DurationProber reads a stream's playable duration.
type DurationProber interface {
	ProbeDuration(ctx context.Context, src io.Reader) (float64, error)
}

// LibraryHandler manages the track library: ingesting new tracks and
// purging removed ones.
type LibraryHandler struct {
	tracks  repository.TrackRepository
	objects ObjectWriter
	prober  DurationProber
}

// NewLibraryHandler creates a LibraryHandler. prober may be nil.
func NewLibraryHandler(tracks repository.TrackRepository, objects ObjectWriter, prober DurationProber) *LibraryHandler {
	return &LibraryHandler{tracks: tracks, objects: objects, prober: prober}
}

// HandleUpload serves POST /api/tracks: a multipart "audio" file plus
// title/artist/album/format fields. The duration is probed off the upload so
// HLS manifests can be built without re-reading the object.
func (h *LibraryHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("audio")
	if err != nil {
		http.Error(w, "missing audio file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	track := &model.Track{
		Title:    r.FormValue("title"),
		Artist:   r.FormValue("artist"),
		Album:    r.FormValue("album"),
		FileName: filepath.Base(header.Filename),
		Format:   model.AudioFormat(r.FormValue("format")),
	}
	if track.Title == "" || track.FileName == "" || track.FileName == "." {
		http.Error(w, "missing title or file name", http.StatusBadRequest)
		return
	}

	if h.prober != nil {
		if d, perr := h.prober.ProbeDuration(r.Context(), file); perr == nil {
			track.Duration = d
		} else {
			logger.Warn("duration probe failed on upload",
				logger.String("fileName", track.FileName),
				logger.ErrorField(perr))
		}
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			http.Error(w, "failed to rewind upload", http.StatusInternalServerError)
			return
		}
	}

	id, err := h.tracks.Create(r.Context(), track)
	if err != nil {
		logger.Error("failed to create track", logger.ErrorField(err))
		http.Error(w, "failed to create track", http.StatusInternalServerError)
		return
	}
	track.ID = id

	if err := h.objects.Put(r.Context(), track.SourceKey(), track.Format.ContentType(), file, header.Size); err != nil {
		logger.Error("failed to store uploaded audio",
			logger.Int64("trackId", id),
			logger.ErrorField(err))
		http.Error(w, "failed to store audio", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(track)
}

// HandleDelete serves DELETE /api/tracks/{track_id}, removing the stored
// audio and the metadata row.
func (h *LibraryHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	trackID, err := pathTrackID(r)
	if err != nil {
		http.Error(w, "invalid track id", http.StatusBadRequest)
		return
	}

	track, err := h.tracks.Resolve(r.Context(), trackID)
	if err != nil {
		http.Error(w, "failed to load track", http.StatusInternalServerError)
		return
	}
	if track == nil {
		http.Error(w, "track not found", http.StatusNotFound)
		return
	}

	if err := h.objects.Remove(r.Context(), track.SourceKey()); err != nil {
		// The metadata delete still proceeds; the orphaned object is
		// harmless and can be cleaned up by a later sweep.
		logger.Warn("failed to remove audio object",
			logger.Int64("trackId", trackID),
			logger.ErrorField(err))
	}
	if err := h.tracks.Delete(r.Context(), trackID); err != nil {
		http.Error(w, "failed to delete track", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
