package downloader

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/medianote/api/internal/model"
)

var episodeIDPattern = regexp.MustCompile(`/episode/([0-9a-fA-F]+)`)

// PodcastDownloader fetches podcast-feed episodes. The episode id is looked
// up against the feed API to obtain the real media URL first; the feed's JSON
// shape is an external, unstable contract, so any lookup or parse failure is
// surfaced as an error rather than treated as "no media".
type PodcastDownloader struct {
	httpClient  *http.Client
	feedBaseURL string
	cookies     CookieSource
}

// feedEpisode is the feed API response subset the pipeline needs
type feedEpisode struct {
	Data struct {
		Title     string  `json:"title"`
		Duration  float64 `json:"duration"`
		Enclosure struct {
			URL string `json:"url"`
		} `json:"enclosure"`
	} `json:"data"`
}

func NewPodcastDownloader(feedBaseURL string, cookies CookieSource) *PodcastDownloader {
	if feedBaseURL == "" {
		feedBaseURL = "https://api.xiaoyuzhoufm.com"
	}
	return &PodcastDownloader{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		feedBaseURL: feedBaseURL,
		cookies:     cookies,
	}
}

func (d *PodcastDownloader) Platform() model.Platform { return model.PlatformPodcast }

// SupportedQualities: the feed serves a single enclosure, every tier resolves
// to the same file.
func (d *PodcastDownloader) SupportedQualities() []model.DownloadQuality {
	return []model.DownloadQuality{model.QualityFast, model.QualityMedium, model.QualityBest}
}

func (d *PodcastDownloader) Download(ctx context.Context, videoURL, outputDir string, quality model.DownloadQuality, needVideo bool) (*model.AudioDownloadResult, error) {
	if err := checkQuality(d, quality); err != nil {
		return nil, err
	}

	m := episodeIDPattern.FindStringSubmatch(videoURL)
	if m == nil {
		return nil, &DownloadError{
			Platform: d.Platform(),
			Op:       "episode id",
			Err:      fmt.Errorf("no episode id in url %q", videoURL),
		}
	}
	episodeID := m[1]

	episode, err := d.lookupEpisode(ctx, episodeID)
	if err != nil {
		return nil, &DownloadError{Platform: d.Platform(), Op: "feed lookup", Err: err}
	}
	if episode.Data.Enclosure.URL == "" {
		return nil, &DownloadError{
			Platform: d.Platform(),
			Op:       "feed lookup",
			Err:      fmt.Errorf("episode %q has no media url", episodeID),
		}
	}

	finalPath, err := d.fetchMedia(ctx, episode.Data.Enclosure.URL, outputDir, episodeID)
	if err != nil {
		return nil, &DownloadError{Platform: d.Platform(), Op: "fetch", Err: err}
	}

	return &model.AudioDownloadResult{
		FilePath: finalPath,
		Title:    episode.Data.Title,
		Duration: episode.Data.Duration,
		Format:   "mp3",
		Quality:  quality,
	}, nil
}

// lookupEpisode resolves the feed item by id, retrying once with backoff.
func (d *PodcastDownloader) lookupEpisode(ctx context.Context, episodeID string) (*feedEpisode, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(2 * time.Second):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		episode, err := d.lookupOnce(ctx, episodeID)
		if err == nil {
			return episode, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func (d *PodcastDownloader) lookupOnce(ctx context.Context, episodeID string) (*feedEpisode, error) {
	url := fmt.Sprintf("%s/v1/episode/get?eid=%s", d.feedBaseURL, episodeID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if cookie, ok, err := d.cookies.GetConfig(ctx, string(d.Platform())); err == nil && ok && cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed API error (status %d): %s", resp.StatusCode, string(body))
	}

	var episode feedEpisode
	if err := json.Unmarshal(body, &episode); err != nil {
		return nil, fmt.Errorf("failed to parse feed response: %w", err)
	}
	return &episode, nil
}

// fetchMedia streams the enclosure into a temp file and renames it into the
// output directory once fully written.
func (d *PodcastDownloader) fetchMedia(ctx context.Context, mediaURL, outputDir, episodeID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("media request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("media fetch error: status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("output dir: %w", err)
	}

	tmp, err := os.CreateTemp(outputDir, episodeID+".*.part")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("write media: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("close media file: %w", err)
	}

	finalPath := filepath.Join(outputDir, episodeID+".mp3")
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("finalize media file: %w", err)
	}
	return finalPath, nil
}
