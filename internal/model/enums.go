package model

// Platform identifies where a media URL comes from
type Platform string

const (
	PlatformBilibili Platform = "bilibili"
	PlatformYoutube  Platform = "youtube"
	PlatformDouyin   Platform = "douyin"
	PlatformPodcast  Platform = "podcast"
)

var ValidPlatforms = []Platform{
	PlatformBilibili, PlatformYoutube, PlatformDouyin, PlatformPodcast,
}

// Valid reports whether p is a known platform.
func (p Platform) Valid() bool {
	for _, v := range ValidPlatforms {
		if p == v {
			return true
		}
	}
	return false
}

// DownloadQuality selects the audio quality tier for a download.
// Platforms declare which tiers they support; the set is open-ended.
type DownloadQuality string

const (
	QualityFast   DownloadQuality = "fast"
	QualityMedium DownloadQuality = "medium"
	QualityBest   DownloadQuality = "best"
)

// ProviderType is the AI backend category a provider belongs to
type ProviderType string

const (
	ProviderTypeGroq   ProviderType = "groq"
	ProviderTypeOpenAI ProviderType = "openai"
)

// LogoCustom marks a user-added provider as opposed to a built-in one
const LogoCustom = "custom"

// ExportFormat is a canonical export target
type ExportFormat string

const (
	FormatPDF   ExportFormat = "pdf"
	FormatHTML  ExportFormat = "html"
	FormatDocx  ExportFormat = "docx"
	FormatImage ExportFormat = "png"
)

// Job status
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)
