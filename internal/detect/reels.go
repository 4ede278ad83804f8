package detect

import (
	"net/url"
	"strings"

	"scrollsafe/internal/media"
	"scrollsafe/internal/page"
)

const PlatformReels = "reels"

// Reels detects the active Instagram reel.
type Reels struct{}

func NewReels() *Reels { return &Reels{} }

func (Reels) Platform() string { return PlatformReels }

func (Reels) Match(snap *page.Snapshot) bool {
	host := hostOf(snap.URL)
	if host != "www.instagram.com" && host != "instagram.com" {
		return false
	}
	path := pathOf(snap.URL)
	return strings.Contains(path, "/reel/") || strings.Contains(path, "/reels/")
}

func (Reels) Detect(snap *page.Snapshot) *media.Candidate {
	video := activeVideo(snap)
	if video == nil {
		return nil
	}
	videoID := reelID(snap.URL)
	if videoID == "" {
		videoID = reelID(video.SourceURL)
	}
	if videoID == "" {
		return nil
	}
	return &media.Candidate{
		Platform:      PlatformReels,
		VideoID:       videoID,
		Title:         normalizeText(video.Title),
		Channel:       normalizeText(video.Channel),
		MountPoint:    video.MountPoint,
		CanonicalURL:  "https://www.instagram.com/reel/" + videoID + "/",
		PlacementHint: "reel-player",
		Metadata:      video.Attributes,
	}
}

// reelID extracts the reel shortcode from /reel/{id} or /reels/{id} paths.
func reelID(raw string) string {
	if raw == "" {
		return ""
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	for i, segment := range segments {
		if (segment == "reel" || segment == "reels") && i+1 < len(segments) {
			return segments[i+1]
		}
	}
	return ""
}
