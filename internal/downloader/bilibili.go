package downloader

import (
	"context"

	"github.com/medianote/api/internal/model"
)

// BilibiliDownloader fetches bilibili media through yt-dlp with the stored
// bilibili cookie.
type BilibiliDownloader struct {
	runner *ytdlpRunner
}

func NewBilibiliDownloader(bin string, cookies CookieSource) *BilibiliDownloader {
	return &BilibiliDownloader{runner: newYtdlpRunner(bin, cookies)}
}

func (d *BilibiliDownloader) Platform() model.Platform { return model.PlatformBilibili }

func (d *BilibiliDownloader) SupportedQualities() []model.DownloadQuality {
	return []model.DownloadQuality{model.QualityFast, model.QualityMedium, model.QualityBest}
}

func (d *BilibiliDownloader) Download(ctx context.Context, videoURL, outputDir string, quality model.DownloadQuality, needVideo bool) (*model.AudioDownloadResult, error) {
	if err := checkQuality(d, quality); err != nil {
		return nil, err
	}
	return d.runner.run(ctx, d.Platform(), videoURL, outputDir, quality, needVideo)
}
