package resolver

import (
	"context"
	"errors"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/medianote/api/internal/model"
)

// ErrUnresolved reports that no video id could be extracted from the URL.
// It is a non-fatal outcome: the caller decides whether to retry or reject.
var ErrUnresolved = errors.New("video id not found in url")

var (
	bilibiliPattern = regexp.MustCompile(`BV([0-9A-Za-z]+)`)
	youtubePattern  = regexp.MustCompile(`(?:v=|youtu\.be/)([0-9A-Za-z_-]{11})`)
	douyinPattern   = regexp.MustCompile(`/video/(\d+)`)
	podcastPattern  = regexp.MustCompile(`/episode/([0-9a-fA-F]+)`)
)

// Resolver normalizes a platform URL into a canonical video identifier.
type Resolver struct {
	httpClient *http.Client
}

// New creates a resolver with an explicit timeout for short-link lookups.
func New() *Resolver {
	return &Resolver{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Resolve extracts the platform-specific video id from a URL. Exactly one
// match attempt per call; no retries beyond the short-link lookup's own
// single retry. A miss returns ErrUnresolved.
func (r *Resolver) Resolve(ctx context.Context, url string, platform model.Platform) (string, error) {
	switch platform {
	case model.PlatformBilibili:
		if strings.Contains(url, "b23.tv") {
			if resolved := r.resolveShortURL(ctx, url); resolved != "" {
				url = resolved
			}
		}
		if m := bilibiliPattern.FindStringSubmatch(url); m != nil {
			return "BV" + m[1], nil
		}
	case model.PlatformYoutube:
		if m := youtubePattern.FindStringSubmatch(url); m != nil {
			return m[1], nil
		}
	case model.PlatformDouyin:
		if m := douyinPattern.FindStringSubmatch(url); m != nil {
			return m[1], nil
		}
	case model.PlatformPodcast:
		if m := podcastPattern.FindStringSubmatch(url); m != nil {
			return m[1], nil
		}
	}
	return "", ErrUnresolved
}

// resolveShortURL follows b23.tv redirects to the canonical video URL.
// Failure here is non-fatal: the original URL is kept and pattern matching
// proceeds against it. One retry with a short backoff.
func (r *Resolver) resolveShortURL(ctx context.Context, shortURL string) string {
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(500 * time.Millisecond):
			case <-ctx.Done():
				return ""
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodHead, shortURL, nil)
		if err != nil {
			return ""
		}
		resp, err := r.httpClient.Do(req)
		if err != nil {
			log.Printf("Short URL lookup failed (attempt %d): %v", attempt+1, err)
			continue
		}
		resp.Body.Close()
		// The client followed redirects; the final request URL is canonical.
		return resp.Request.URL.String()
	}
	return ""
}
