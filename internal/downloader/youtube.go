package downloader

import (
	"context"

	"github.com/medianote/api/internal/model"
)

// YoutubeDownloader fetches youtube media through yt-dlp.
type YoutubeDownloader struct {
	runner *ytdlpRunner
}

func NewYoutubeDownloader(bin string, cookies CookieSource) *YoutubeDownloader {
	return &YoutubeDownloader{runner: newYtdlpRunner(bin, cookies)}
}

func (d *YoutubeDownloader) Platform() model.Platform { return model.PlatformYoutube }

func (d *YoutubeDownloader) SupportedQualities() []model.DownloadQuality {
	return []model.DownloadQuality{model.QualityFast, model.QualityMedium, model.QualityBest}
}

func (d *YoutubeDownloader) Download(ctx context.Context, videoURL, outputDir string, quality model.DownloadQuality, needVideo bool) (*model.AudioDownloadResult, error) {
	if err := checkQuality(d, quality); err != nil {
		return nil, err
	}
	return d.runner.run(ctx, d.Platform(), videoURL, outputDir, quality, needVideo)
}
