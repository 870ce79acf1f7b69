package audio

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os/exec"

	"github.com/malekmuhammad848-blip/Smart-Music-App-Cent/logger"
	"github.com/malekmuhammad848-blip/Smart-Music-App-Cent/model"
)

// DefaultWaveformPoints is the envelope length served to clients.
const DefaultWaveformPoints = 200

// FFmpegWaveform computes amplitude envelopes by decoding tracks to mono
// PCM through ffmpeg.
type FFmpegWaveform struct {
	ffmpegPath string
}

// NewFFmpegWaveform creates a waveform extractor using the given ffmpeg binary.
func NewFFmpegWaveform(ffmpegPath string) *FFmpegWaveform {
	return &FFmpegWaveform{ffmpegPath: ffmpegPath}
}

// Extract decodes src to mono 16-bit PCM and reduces it to an envelope of
// at most points values in [0,100].
func (w *FFmpegWaveform) Extract(ctx context.Context, src io.Reader, format model.AudioFormat, points int) ([]float64, error) {
	if points <= 0 {
		points = DefaultWaveformPoints
	}

	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-i", "pipe:0",
		"-ac", "1",
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"pipe:1",
	}

	cmd := exec.CommandContext(ctx, w.ffmpegPath, args...)
	cmd.Stdin = src

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("creating ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting ffmpeg: %w", err)
	}

	samples, readErr := readAbsSamples(stdout)
	waitErr := cmd.Wait()
	if waitErr != nil {
		return nil, fmt.Errorf("ffmpeg decode failed: %w (%s)", waitErr, truncate(stderr.String(), 256))
	}
	if readErr != nil {
		return nil, fmt.Errorf("reading pcm stream: %w", readErr)
	}

	logger.Debug("waveform decoded",
		logger.String("sourceFormat", string(format)),
		logger.Int("samples", len(samples)),
		logger.Int("points", points))

	return Envelope(samples, points), nil
}

// readAbsSamples reads little-endian int16 samples and keeps their absolute
// values.
func readAbsSamples(r io.Reader) ([]float64, error) {
	br := bufio.NewReaderSize(r, 64*1024)
	var samples []float64
	var buf [2]byte
	for {
		if _, err := io.ReadFull(br, buf[:]); err != nil {
			if err == io.EOF {
				return samples, nil
			}
			if err == io.ErrUnexpectedEOF {
				// Trailing odd byte; drop it.
				return samples, nil
			}
			return samples, err
		}
		v := int16(binary.LittleEndian.Uint16(buf[:]))
		a := float64(v)
		if a < 0 {
			a = -a
		}
		samples = append(samples, a)
	}
}

// Envelope partitions samples into at most points contiguous windows of
// equal size, averages each window and rescales so the loudest window maps
// to 100. When there are fewer samples than requested points, the point
// count is clamped to the sample count, so the output may be shorter than
// requested but is never empty for non-empty input.
func Envelope(samples []float64, points int) []float64 {
	if len(samples) == 0 || points <= 0 {
		return nil
	}
	if points > len(samples) {
		points = len(samples)
	}

	step := len(samples) / points
	out := make([]float64, 0, points)
	for i := 0; i < points; i++ {
		window := samples[i*step : (i+1)*step]
		var sum float64
		for _, v := range window {
			sum += v
		}
		out = append(out, sum/float64(len(window)))
	}

	var max float64
	for _, v := range out {
		if v > max {
			max = v
		}
	}
	if max == 0 {
		return out // silent input stays all zeros
	}
	for i := range out {
		out[i] = out[i] / max * 100
	}
	return out
}
