package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/malekmuhammad848-blip/Smart-Music-App-Cent/logger"
	"github.com/malekmuhammad848-blip/Smart-Music-App-Cent/model"
)

// FFmpegTranscoder re-encodes audio streams with an ffmpeg subprocess.
// Source bytes flow through stdin and re-encoded bytes out of stdout, so
// memory stays bounded by the pipe buffers regardless of track size.
type FFmpegTranscoder struct {
	ffmpegPath string
}

// NewFFmpegTranscoder creates a transcoder using the given ffmpeg binary.
func NewFFmpegTranscoder(ffmpegPath string) *FFmpegTranscoder {
	return &FFmpegTranscoder{ffmpegPath: ffmpegPath}
}

// Transcode decodes src incrementally and re-encodes it to MP3 at the given
// bitrate. The returned stream aborts with an error if the codec fails;
// bytes already delivered are not retracted, so callers must treat an
// aborted stream as a failed request. Cancelling ctx kills the subprocess
// and stops pulling from src.
func (t *FFmpegTranscoder) Transcode(ctx context.Context, src io.Reader, format model.AudioFormat, bitrate int) (io.ReadCloser, error) {
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-i", "pipe:0",
		"-codec:a", "libmp3lame",
		"-b:a", strconv.Itoa(bitrate/1000) + "k",
		"-f", "mp3",
		"pipe:1",
	}

	cmd := exec.CommandContext(ctx, t.ffmpegPath, args...)
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

	logger.Debug("transcode started",
		logger.String("sourceFormat", string(format)),
		logger.Int("bitrate", bitrate))

	return &codecStream{cmd: cmd, out: stdout, stderr: &stderr}, nil
}

// codecStream wraps the subprocess stdout so that a codec failure surfaces
// as a single error at the read site instead of a silent short stream.
type codecStream struct {
	cmd    *exec.Cmd
	out    io.ReadCloser
	stderr *bytes.Buffer
	waited bool
}

func (s *codecStream) Read(p []byte) (int, error) {
	n, err := s.out.Read(p)
	if err == io.EOF {
		if werr := s.wait(); werr != nil {
			return n, werr
		}
	}
	return n, err
}

func (s *codecStream) Close() error {
	if s.cmd.Process != nil {
		s.cmd.Process.Kill()
	}
	s.wait()
	return s.out.Close()
}

func (s *codecStream) wait() error {
	if s.waited {
		return nil
	}
	s.waited = true
	if err := s.cmd.Wait(); err != nil {
		msg := truncate(s.stderr.String(), 512)
		return fmt.Errorf("ffmpeg exited: %w (%s)", err, msg)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// ffprobeOutput defines the structure for ffprobe JSON output.
type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// ProbeDuration reads the stream's container headers with ffprobe and
// returns the playable duration in seconds.
func (t *FFmpegTranscoder) ProbeDuration(ctx context.Context, src io.Reader) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		"pipe:0",
	}

	cmd := exec.CommandContext(ctx, ffprobeFrom(t.ffmpegPath), args...)
	cmd.Stdin = src
	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe execution failed: %w (%s)", err, truncate(stderr.String(), 256))
	}

	var probeData ffprobeOutput
	if err := json.Unmarshal(out.Bytes(), &probeData); err != nil {
		return 0, fmt.Errorf("failed to unmarshal ffprobe output: %w", err)
	}
	if probeData.Format.Duration == "" {
		return 0, fmt.Errorf("duration not found in ffprobe output")
	}

	duration, err := strconv.ParseFloat(probeData.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration %q: %w", probeData.Format.Duration, err)
	}
	return duration, nil
}

// ffprobe ships next to ffmpeg.
func ffprobeFrom(ffmpegPath string) string {
	if !strings.Contains(ffmpegPath, "ffmpeg") {
		return "ffprobe"
	}
	return strings.Replace(ffmpegPath, "ffmpeg", "ffprobe", 1)
}
