package media

import "strings"

// Candidate describes one detected unit of work: a single video eligible for
// analysis. Candidates are transient; detectors rebuild them on every pass
// and equality is defined by (Platform, VideoID) alone.
type Candidate struct {
	Platform      string
	VideoID       string
	Title         string
	Channel       string
	MountPoint    string
	CanonicalURL  string
	PlacementHint string
	Metadata      map[string]string
}

// Key returns the stable dedup key for the candidate.
func (c Candidate) Key() string {
	return c.Platform + ":" + c.VideoID
}

// Same reports whether two candidates identify the same video.
func (c Candidate) Same(other Candidate) bool {
	return c.Platform == other.Platform && c.VideoID == other.VideoID
}

// Valid reports whether the candidate carries enough identity to be processed.
func (c Candidate) Valid() bool {
	return strings.TrimSpace(c.Platform) != "" &&
		strings.TrimSpace(c.VideoID) != "" &&
		strings.TrimSpace(c.MountPoint) != ""
}
