package transcriber

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
)

// fallbackBitrate is the fixed target for the single re-encode pass
const fallbackBitrate = "64k"

// FFmpegEncoder shells out to ffmpeg for the compression fallback.
type FFmpegEncoder struct {
	bin string
}

// NewFFmpegEncoder creates an encoder using the given ffmpeg binary name.
func NewFFmpegEncoder(bin string) *FFmpegEncoder {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &FFmpegEncoder{bin: bin}
}

// Available reports whether the ffmpeg binary can be found.
func (e *FFmpegEncoder) Available() bool {
	_, err := exec.LookPath(e.bin)
	return err == nil
}

// Compress re-encodes the input to a lower-bitrate mp3 in a fresh temporary
// file. The caller owns the returned path and must remove it. On failure the
// partial output is removed here.
func (e *FFmpegEncoder) Compress(ctx context.Context, inputPath string) (string, error) {
	out, err := os.CreateTemp("", "medianote-compress-*.mp3")
	if err != nil {
		return "", fmt.Errorf("create temp output: %w", err)
	}
	outputPath := out.Name()
	out.Close()

	cmd := exec.CommandContext(ctx, e.bin,
		"-y",
		"-i", inputPath,
		"-vn",
		"-b:a", fallbackBitrate,
		outputPath,
	)
	var outputBuf bytes.Buffer
	cmd.Stdout = &outputBuf
	cmd.Stderr = &outputBuf

	if err := cmd.Run(); err != nil {
		os.Remove(outputPath)
		return "", fmt.Errorf("ffmpeg re-encode failed: %w: %s", err, outputBuf.String())
	}

	return outputPath, nil
}
