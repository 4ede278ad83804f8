package detect

import (
	"net/url"
	"strings"

	"scrollsafe/internal/media"
	"scrollsafe/internal/page"
)

const PlatformYouTube = "youtube"

// YouTube detects the active Shorts player. The page URL itself carries the
// video identity, so detection keys off the path rather than element state.
type YouTube struct{}

func NewYouTube() *YouTube { return &YouTube{} }

func (YouTube) Platform() string { return PlatformYouTube }

func (YouTube) Match(snap *page.Snapshot) bool {
	host := hostOf(snap.URL)
	return (host == "www.youtube.com" || host == "youtube.com" || host == "m.youtube.com") &&
		strings.Contains(pathOf(snap.URL), "/shorts/")
}

func (YouTube) Detect(snap *page.Snapshot) *media.Candidate {
	videoID := shortsID(snap.URL)
	if videoID == "" {
		return nil
	}
	video := activeVideo(snap)
	if video == nil {
		return nil
	}
	return &media.Candidate{
		Platform:      PlatformYouTube,
		VideoID:       videoID,
		Title:         normalizeText(video.Title),
		Channel:       normalizeText(video.Channel),
		MountPoint:    video.MountPoint,
		CanonicalURL:  "https://www.youtube.com/shorts/" + videoID,
		PlacementHint: "shorts-player",
		Metadata:      video.Attributes,
	}
}

// shortsID extracts the video id from a /shorts/{id} path.
func shortsID(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	for i, segment := range segments {
		if segment == "shorts" && i+1 < len(segments) {
			return segments[i+1]
		}
	}
	return ""
}

func hostOf(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Host)
}

func pathOf(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return parsed.Path
}
