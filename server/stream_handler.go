package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/malekmuhammad848-blip/Smart-Music-App-Cent/core/audio"
	"github.com/malekmuhammad848-blip/Smart-Music-App-Cent/core/stream"
	"github.com/malekmuhammad848-blip/Smart-Music-App-Cent/logger"
	"github.com/malekmuhammad848-blip/Smart-Music-App-Cent/model"

	"github.com/gorilla/mux"
)

// StreamHandler is the thin HTTP adapter over the delivery core. It only
// maps request fields and error values; all policy and pipeline logic lives
// in core/stream. The user identity comes pre-authenticated from the gateway
// in the X-User-ID header.
type StreamHandler struct {
	orchestrator *stream.Orchestrator
	segments     *audio.SegmentPipeline
}

// NewStreamHandler creates a StreamHandler.
func NewStreamHandler(orchestrator *stream.Orchestrator, segments *audio.SegmentPipeline) *StreamHandler {
	return &StreamHandler{orchestrator: orchestrator, segments: segments}
}

// HandleStream serves GET /api/stream/{track_id}?quality=...
func (h *StreamHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	trackID, err := pathTrackID(r)
	if err != nil {
		http.Error(w, "invalid track id", http.StatusBadRequest)
		return
	}
	userID, err := headerUserID(r)
	if err != nil {
		http.Error(w, "missing user identity", http.StatusUnauthorized)
		return
	}

	quality := model.ParseQuality(r.URL.Query().Get("quality"))
	rng, err := parseRangeHeader(r.Header.Get("Range"))
	if err != nil {
		http.Error(w, "invalid range", http.StatusRequestedRangeNotSatisfiable)
		return
	}

	resp, err := h.orchestrator.StreamTrack(r.Context(), trackID, userID, quality, rng)
	if err != nil {
		writeStreamError(w, err)
		return
	}
	defer resp.Body.Close()

	w.Header().Set("Content-Type", resp.ContentType)
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("X-Bitrate", strconv.Itoa(resp.Bitrate))
	if resp.ContentLength >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(resp.ContentLength, 10))
	}
	if rng != nil {
		if resp.ContentLength == 0 {
			if resp.TotalSize >= 0 {
				w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", resp.TotalSize))
			}
			w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
			return
		}
		if resp.TotalSize >= 0 {
			end := rng.Start + resp.ContentLength - 1
			w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", rng.Start, end, resp.TotalSize))
		}
		w.WriteHeader(http.StatusPartialContent)
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		// The client hung up or the pipeline aborted mid-stream; either
		// way the response is already committed.
		logger.Debug("stream copy interrupted",
			logger.Int64("trackId", trackID),
			logger.ErrorField(err))
	}
}

// HandleHLSManifest serves GET /api/stream/{track_id}/hls
func (h *StreamHandler) HandleHLSManifest(w http.ResponseWriter, r *http.Request) {
	trackID, err := pathTrackID(r)
	if err != nil {
		http.Error(w, "invalid track id", http.StatusBadRequest)
		return
	}
	userID, err := headerUserID(r)
	if err != nil {
		http.Error(w, "missing user identity", http.StatusUnauthorized)
		return
	}

	manifest, err := h.orchestrator.GenerateHLS(r.Context(), trackID, userID)
	if err != nil {
		writeStreamError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
	io.WriteString(w, manifest.M3U8())
}

// HandleHLSSegment serves GET /stream/hls/{track_id}/{segment}
func (h *StreamHandler) HandleHLSSegment(w http.ResponseWriter, r *http.Request) {
	trackID, err := pathTrackID(r)
	if err != nil {
		http.Error(w, "invalid track id", http.StatusBadRequest)
		return
	}
	name := mux.Vars(r)["segment"]
	if !strings.HasSuffix(name, ".ts") || strings.Contains(name, "/") {
		http.Error(w, "invalid segment name", http.StatusBadRequest)
		return
	}

	data, contentType, err := h.segments.GetSegment(r.Context(), trackID, name)
	if err != nil {
		http.Error(w, "segment not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

// HandleWaveform serves GET /api/tracks/{track_id}/waveform
func (h *StreamHandler) HandleWaveform(w http.ResponseWriter, r *http.Request) {
	trackID, err := pathTrackID(r)
	if err != nil {
		http.Error(w, "invalid track id", http.StatusBadRequest)
		return
	}

	envelope, err := h.orchestrator.GetWaveform(r.Context(), trackID)
	if err != nil {
		writeStreamError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"waveform": envelope})
}

func pathTrackID(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["track_id"], 10, 64)
}

func headerUserID(r *http.Request) (int64, error) {
	v := r.Header.Get("X-User-ID")
	if v == "" {
		return 0, fmt.Errorf("no user header")
	}
	return strconv.ParseInt(v, 10, 64)
}

// parseRangeHeader understands single ranges of the form bytes=start-end
// and bytes=start-. Anything else is rejected.
func parseRangeHeader(header string) (*stream.ByteRange, error) {
	if header == "" {
		return nil, nil
	}
	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok || strings.Contains(spec, ",") {
		return nil, fmt.Errorf("unsupported range %q", header)
	}

	startStr, endStr, ok := strings.Cut(spec, "-")
	if !ok {
		return nil, fmt.Errorf("malformed range %q", header)
	}
	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 {
		return nil, fmt.Errorf("malformed range start %q", header)
	}

	end := int64(-1)
	if endStr != "" {
		end, err = strconv.ParseInt(endStr, 10, 64)
		if err != nil || end < start {
			return nil, fmt.Errorf("malformed range end %q", header)
		}
	}
	return &stream.ByteRange{Start: start, End: end}, nil
}

// writeStreamError maps core errors onto HTTP status codes.
func writeStreamError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, stream.ErrTrackNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, stream.ErrPremiumRequired):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, stream.ErrRegionBlocked):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, stream.ErrSourceUnavailable):
		http.Error(w, err.Error(), http.StatusBadGateway)
	case errors.Is(err, stream.ErrTranscodeFailed):
		http.Error(w, err.Error(), http.StatusInternalServerError)
	default:
		logger.Error("unexpected stream error", logger.ErrorField(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
