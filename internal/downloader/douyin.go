package downloader

import (
	"context"

	"github.com/medianote/api/internal/model"
)

// DouyinDownloader fetches douyin media through yt-dlp. Douyin serves a
// single muxed stream, so only the best tier is offered.
type DouyinDownloader struct {
	runner *ytdlpRunner
}

func NewDouyinDownloader(bin string, cookies CookieSource) *DouyinDownloader {
	return &DouyinDownloader{runner: newYtdlpRunner(bin, cookies)}
}

func (d *DouyinDownloader) Platform() model.Platform { return model.PlatformDouyin }

func (d *DouyinDownloader) SupportedQualities() []model.DownloadQuality {
	return []model.DownloadQuality{model.QualityBest}
}

func (d *DouyinDownloader) Download(ctx context.Context, videoURL, outputDir string, quality model.DownloadQuality, needVideo bool) (*model.AudioDownloadResult, error) {
	if err := checkQuality(d, quality); err != nil {
		return nil, err
	}
	return d.runner.run(ctx, d.Platform(), videoURL, outputDir, quality, needVideo)
}
