package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Transcoder converts a downloaded file to the task's target codec/quality.
// Implemented by an external ffmpeg process.
type Transcoder interface {
	// Transcode converts inputFile to outputFile in the given codec at the
	// given quality (a bitrate like "192k", empty for lossless codecs).
	Transcode(ctx context.Context, inputFile, outputFile, codec, quality string) error
	// ProbeDuration returns the duration of an audio file in seconds.
	ProbeDuration(inputFile string) (float64, error)
}

// FFmpegTranscoder shells out to ffmpeg/ffprobe.
type FFmpegTranscoder struct {
	ffmpegPath string
}

// NewFFmpegTranscoder creates a transcoder around the given ffmpeg binary.
// ffprobe is expected alongside it.
func NewFFmpegTranscoder(ffmpegPath string) *FFmpegTranscoder {
	return &FFmpegTranscoder{ffmpegPath: ffmpegPath}
}

// Transcode implements Transcoder.
func (t *FFmpegTranscoder) Transcode(ctx context.Context, inputFile, outputFile, codec, quality string) error {
	args := []string{
		"-y",
		"-i", inputFile,
		"-vn",
	}
	switch codec {
	case "flac":
		args = append(args, "-c:a", "flac")
	case "opus":
		args = append(args, "-c:a", "libopus")
	case "mp3":
		args = append(args, "-c:a", "libmp3lame")
	default:
		args = append(args, "-c:a", "aac")
	}
	if quality != "" && codec != "flac" {
		args = append(args, "-b:a", quality)
	}
	args = append(args, outputFile)

	cmd := exec.CommandContext(ctx, t.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg execution failed for %s: %w\nffmpeg output: %s",
			inputFile, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// ffprobeOutput is the structure of ffprobe's JSON format section.
type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// ProbeDuration implements Transcoder using ffprobe.
func (t *FFmpegTranscoder) ProbeDuration(inputFile string) (float64, error) {
	ffprobePath := strings.Replace(t.ffmpegPath, "ffmpeg", "ffprobe", 1)

	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		inputFile,
	}
	cmd := exec.Command(ffprobePath, args...)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe execution failed for %s: %w\nffprobe output: %s",
			inputFile, err, strings.TrimSpace(stderr.String()))
	}

	var probeData ffprobeOutput
	if err := json.Unmarshal(out.Bytes(), &probeData); err != nil {
		return 0, fmt.Errorf("failed to unmarshal ffprobe output for %s: %w", inputFile, err)
	}
	if probeData.Format.Duration == "" {
		return 0, fmt.Errorf("duration not found in ffprobe output for %s", inputFile)
	}

	duration, err := strconv.ParseFloat(probeData.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration %q for %s: %w", probeData.Format.Duration, inputFile, err)
	}
	return duration, nil
}
