package downloader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/medianote/api/internal/model"
)

// ytdlpRunner runs yt-dlp into a staging directory and moves the artifact
// into the output directory only after the process exited cleanly. Shared by
// the bilibili, youtube and douyin variants.
type ytdlpRunner struct {
	bin     string
	cookies CookieSource
}

// ytdlpInfo is the subset of the -j info JSON the pipeline needs
type ytdlpInfo struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Duration float64 `json:"duration"`
	Ext      string  `json:"ext"`
}

func newYtdlpRunner(bin string, cookies CookieSource) *ytdlpRunner {
	if bin == "" {
		bin = "yt-dlp"
	}
	return &ytdlpRunner{bin: bin, cookies: cookies}
}

// formatFor maps a quality tier to a yt-dlp format selector.
func formatFor(quality model.DownloadQuality, needVideo bool) string {
	if needVideo {
		return "bv*+ba/b"
	}
	switch quality {
	case model.QualityFast:
		return "worstaudio/worst"
	case model.QualityMedium:
		return "bestaudio[abr<=128]/bestaudio"
	default:
		return "bestaudio/best"
	}
}

// run downloads videoURL for a platform and returns the final artifact.
func (r *ytdlpRunner) run(ctx context.Context, platform model.Platform, videoURL, outputDir string, quality model.DownloadQuality, needVideo bool) (*model.AudioDownloadResult, error) {
	staging, err := os.MkdirTemp("", "medianote-dl-")
	if err != nil {
		return nil, &DownloadError{Platform: platform, Op: "staging dir", Err: err}
	}
	defer os.RemoveAll(staging)

	args := []string{
		"-f", formatFor(quality, needVideo),
		"-o", filepath.Join(staging, "%(id)s.%(ext)s"),
		"--no-playlist",
		"-j", "--no-simulate",
	}

	cookie, ok, err := r.cookies.GetConfig(ctx, string(platform))
	if err != nil {
		return nil, &DownloadError{Platform: platform, Op: "cookie lookup", Err: err}
	}
	if ok && cookie != "" {
		args = append(args, "--add-header", "Cookie: "+cookie)
	}
	args = append(args, videoURL)

	cmd := exec.CommandContext(ctx, r.bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, &DownloadError{
			Platform: platform,
			Op:       "fetch",
			Err:      fmt.Errorf("%w: %s", err, stderr.String()),
		}
	}

	var info ytdlpInfo
	if err := json.Unmarshal(stdout.Bytes(), &info); err != nil {
		return nil, &DownloadError{Platform: platform, Op: "parse metadata", Err: err}
	}

	entries, err := filepath.Glob(filepath.Join(staging, info.ID+".*"))
	if err != nil || len(entries) == 0 {
		return nil, &DownloadError{
			Platform: platform,
			Op:       "locate artifact",
			Err:      fmt.Errorf("no downloaded file for id %q", info.ID),
		}
	}
	stagedPath := entries[0]

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, &DownloadError{Platform: platform, Op: "output dir", Err: err}
	}
	finalPath := filepath.Join(outputDir, filepath.Base(stagedPath))
	if err := os.Rename(stagedPath, finalPath); err != nil {
		return nil, &DownloadError{Platform: platform, Op: "finalize", Err: err}
	}
	log.Printf("Downloaded %s video %s to %s", platform, info.ID, finalPath)

	result := &model.AudioDownloadResult{
		FilePath: finalPath,
		Title:    info.Title,
		Duration: info.Duration,
		Format:   info.Ext,
		Quality:  quality,
	}
	if needVideo {
		result.VideoPath = finalPath
	}
	return result, nil
}
