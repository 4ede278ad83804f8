package detect

import (
	"strings"

	"scrollsafe/internal/media"
)

// aiKeywords are substrings whose presence in a title or channel name is a
// strong self-disclosure signal.
var aiKeywords = []string{
	"ai generated",
	"ai-generated",
	"artificial intelligence",
	"deepfake",
	"synthetic",
	"generated by ai",
	"created by ai",
	"ai content",
	"ai video",
	"machine learning",
	"neural network",
	"computer generated",
}

// ScreenKeywords runs the cheap self-disclosure screen over a candidate's
// display metadata. A keyword hit produces an ephemeral ai-detected verdict
// without any network round trip; no hit reports a weak verified signal and
// the caller decides whether to escalate.
func ScreenKeywords(title, channel string) (media.Verdict, bool) {
	combined := strings.ToLower(title + " " + channel)
	for _, keyword := range aiKeywords {
		if strings.Contains(combined, keyword) {
			return media.Verdict{
				Label:      media.LabelAIDetected,
				Confidence: media.NewConfidence(0.7),
				Reason:     "keyword_match: " + keyword,
				Source:     media.SourceHeuristic,
			}, true
		}
	}
	return media.Verdict{
		Label:      media.LabelVerified,
		Confidence: media.NewConfidence(0.3),
		Reason:     "no_keywords",
		Source:     media.SourceHeuristic,
	}, false
}
