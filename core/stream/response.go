package stream

import (
	"bytes"
	"io"
)

// ByteRange is an inclusive byte range requested by the caller.
// End < 0 means "to the end of the artifact".
type ByteRange struct {
	Start int64
	End   int64
}

// Length returns the number of bytes the range covers within an artifact of
// the given total size, or 0 if the range is out of bounds.
func (r ByteRange) Length(total int64) int64 {
	if r.Start >= total || r.Start < 0 {
		return 0
	}
	end := r.End
	if end < 0 || end >= total {
		end = total - 1
	}
	if end < r.Start {
		return 0
	}
	return end - r.Start + 1
}

// Response is a ready-to-serve byte stream. Ownership of Body transfers to
// the caller, which must fully drain or close it.
type Response struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64 // -1 when unknown
	TotalSize     int64 // full artifact size, -1 when unknown
	Bitrate       int   // bits per second
}

// sliceArtifact serves a cached artifact, honoring an optional byte range.
func sliceArtifact(payload []byte, rng *ByteRange, contentType string, bitrate int) *Response {
	total := int64(len(payload))
	if rng == nil {
		return &Response{
			Body:          io.NopCloser(bytes.NewReader(payload)),
			ContentType:   contentType,
			ContentLength: total,
			TotalSize:     total,
			Bitrate:       bitrate,
		}
	}

	n := rng.Length(total)
	if n == 0 {
		return &Response{
			Body:          io.NopCloser(bytes.NewReader(nil)),
			ContentType:   contentType,
			ContentLength: 0,
			TotalSize:     total,
			Bitrate:       bitrate,
		}
	}
	return &Response{
		Body:          io.NopCloser(bytes.NewReader(payload[rng.Start : rng.Start+n])),
		ContentType:   contentType,
		ContentLength: n,
		TotalSize:     total,
		Bitrate:       bitrate,
	}
}
