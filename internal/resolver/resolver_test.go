package resolver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/medianote/api/internal/model"
)

func TestResolve_Patterns(t *testing.T) {
	r := New()
	ctx := context.Background()

	cases := []struct {
		name     string
		url      string
		platform model.Platform
		want     string
	}{
		{
			name:     "bilibili full url",
			url:      "https://www.bilibili.com/video/BV1xx411c7mD?p=1",
			platform: model.PlatformBilibili,
			want:     "BV1xx411c7mD",
		},
		{
			name:     "youtube watch url",
			url:      "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			platform: model.PlatformYoutube,
			want:     "dQw4w9WgXcQ",
		},
		{
			name:     "youtube short link",
			url:      "https://youtu.be/dQw4w9WgXcQ",
			platform: model.PlatformYoutube,
			want:     "dQw4w9WgXcQ",
		},
		{
			name:     "douyin video url",
			url:      "https://www.douyin.com/video/7123456789012345678",
			platform: model.PlatformDouyin,
			want:     "7123456789012345678",
		},
		{
			name:     "podcast episode url",
			url:      "https://www.xiaoyuzhoufm.com/episode/64de23a1b7f0e5a1c2d3e4f5",
			platform: model.PlatformPodcast,
			want:     "64de23a1b7f0e5a1c2d3e4f5",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := r.Resolve(ctx, tc.url, tc.platform)
			if err != nil {
				t.Fatalf("resolve failed: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestResolve_Unresolved(t *testing.T) {
	r := New()
	ctx := context.Background()

	cases := []struct {
		url      string
		platform model.Platform
	}{
		{"not a url at all", model.PlatformBilibili},
		{"https://www.youtube.com/watch?v=short", model.PlatformYoutube},
		{"https://www.bilibili.com/video/BV1xx411c7mD", model.PlatformYoutube},
	}
	for _, tc := range cases {
		if _, err := r.Resolve(ctx, tc.url, tc.platform); !errors.Is(err, ErrUnresolved) {
			t.Errorf("Resolve(%q, %s): expected ErrUnresolved, got %v", tc.url, tc.platform, err)
		}
	}
}

func TestResolve_ShortLinkRedirect(t *testing.T) {
	// The handler redirects to a canonical bilibili URL; the resolver follows
	// it and matches the pattern against the final URL.
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/video/BV1GJ411x7h7" {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.Redirect(w, r, srv.URL+"/video/BV1GJ411x7h7", http.StatusFound)
	}))
	defer srv.Close()

	r := New()
	// The b23.tv marker is what triggers the lookup; pattern matching still
	// runs against whatever URL came back.
	got, err := r.Resolve(context.Background(), srv.URL+"/b23.tv/abc", model.PlatformBilibili)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if got != "BV1GJ411x7h7" {
		t.Errorf("got %q, want BV1GJ411x7h7", got)
	}
}
