package downloader

import (
	"context"
	"fmt"

	"github.com/medianote/api/internal/model"
)

// Downloader fetches the audio of a platform video into a local file. One
// implementation per platform, selected through the Registry.
type Downloader interface {
	// Download fetches the media at the requested quality tier into
	// outputDir. The final path only appears after the write completed
	// fully; partial downloads never surface as results.
	Download(ctx context.Context, videoURL, outputDir string, quality model.DownloadQuality, needVideo bool) (*model.AudioDownloadResult, error)

	// Platform returns the stable identifier this variant handles.
	Platform() model.Platform

	// SupportedQualities lists the quality tiers this platform offers.
	SupportedQualities() []model.DownloadQuality
}

// CookieSource supplies stored per-platform credentials. *store.Store
// satisfies it.
type CookieSource interface {
	GetConfig(ctx context.Context, key string) (string, bool, error)
}

// DownloadError is the typed failure for network, authentication and
// media-lookup problems. It is fatal to the request that triggered it.
type DownloadError struct {
	Platform model.Platform
	Op       string
	Err      error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s (%s): %v", e.Op, e.Platform, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// Registry maps platforms to their downloader variant.
type Registry struct {
	byPlatform map[model.Platform]Downloader
}

// NewRegistry creates an empty downloader registry.
func NewRegistry() *Registry {
	return &Registry{byPlatform: make(map[model.Platform]Downloader)}
}

// Register adds a variant, replacing any previous one for the same platform.
func (r *Registry) Register(d Downloader) {
	r.byPlatform[d.Platform()] = d
}

// Get returns the variant for a platform.
func (r *Registry) Get(platform model.Platform) (Downloader, error) {
	d, ok := r.byPlatform[platform]
	if !ok {
		return nil, fmt.Errorf("no downloader registered for platform %q", platform)
	}
	return d, nil
}

// checkQuality rejects a tier the platform does not offer before any network
// I/O happens.
func checkQuality(d Downloader, quality model.DownloadQuality) error {
	for _, q := range d.SupportedQualities() {
		if q == quality {
			return nil
		}
	}
	return &DownloadError{
		Platform: d.Platform(),
		Op:       "quality check",
		Err:      fmt.Errorf("quality %q not supported, available: %v", quality, d.SupportedQualities()),
	}
}
