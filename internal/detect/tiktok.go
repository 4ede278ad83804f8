package detect

import (
	"net/url"
	"strings"

	"scrollsafe/internal/media"
	"scrollsafe/internal/page"
)

const PlatformTikTok = "tiktok"

// TikTok detects the active video on the For You feed. Navigation there is
// entirely virtual, so the host adapter additionally pushes candidate events
// when the feed advances; this detector stays poll-safe either way and reads
// identity from the active element rather than the page URL.
type TikTok struct{}

func NewTikTok() *TikTok { return &TikTok{} }

func (TikTok) Platform() string { return PlatformTikTok }

func (TikTok) Match(snap *page.Snapshot) bool {
	host := hostOf(snap.URL)
	return host == "www.tiktok.com" || host == "tiktok.com" || host == "m.tiktok.com"
}

func (TikTok) Detect(snap *page.Snapshot) *media.Candidate {
	video := activeVideo(snap)
	if video == nil {
		return nil
	}
	videoID, canonical := tiktokIdentity(video, snap.URL)
	if videoID == "" {
		return nil
	}
	return &media.Candidate{
		Platform:      PlatformTikTok,
		VideoID:       videoID,
		Title:         normalizeText(video.Title),
		Channel:       normalizeText(video.Channel),
		MountPoint:    video.MountPoint,
		CanonicalURL:  canonical,
		PlacementHint: "feed-item",
		Metadata:      video.Attributes,
	}
}

// tiktokIdentity resolves the video id from, in preference order, the
// element's own link, an explicit id attribute, or the page URL when the
// user landed on a single-video permalink.
func tiktokIdentity(video *page.VideoInfo, pageURL string) (string, string) {
	if id := tiktokVideoID(video.SourceURL); id != "" {
		return id, video.SourceURL
	}
	if id := strings.TrimSpace(video.Attributes["data-video-id"]); id != "" {
		return id, video.SourceURL
	}
	if id := tiktokVideoID(pageURL); id != "" {
		return id, pageURL
	}
	return "", ""
}

// tiktokVideoID extracts the id from a /@user/video/{id} path.
func tiktokVideoID(raw string) string {
	if raw == "" {
		return ""
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	for i, segment := range segments {
		if segment == "video" && i+1 < len(segments) {
			return segments[i+1]
		}
	}
	return ""
}
