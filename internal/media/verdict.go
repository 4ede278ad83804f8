package media

import (
	"strings"
	"time"
)

// Label classifies a video's trust signal.
type Label string

const (
	LabelVerified   Label = "verified"
	LabelLikelyReal Label = "likely-real"
	LabelSuspicious Label = "suspicious"
	LabelAIDetected Label = "ai-detected"
	LabelUnknown    Label = "unknown"
)

// ParseLabel normalizes a wire label, mapping unrecognized values to unknown.
func ParseLabel(value string) Label {
	switch Label(strings.ToLower(strings.TrimSpace(value))) {
	case LabelVerified:
		return LabelVerified
	case LabelLikelyReal:
		return LabelLikelyReal
	case LabelSuspicious:
		return LabelSuspicious
	case LabelAIDetected:
		return LabelAIDetected
	default:
		return LabelUnknown
	}
}

// Verdict sources. Override and batch verdicts come from the backend and are
// authoritative; heuristic and deep-scan verdicts are ephemeral.
const (
	SourceOverride  = "override"
	SourceBatch     = "batch"
	SourceHeuristic = "heuristic"
	SourceDeepScan  = "deep-scan"
)

// Verdict is one analysis result for a video.
type Verdict struct {
	Label      Label    `json:"label"`
	Confidence *float64 `json:"confidence,omitempty"`
	Reason     string   `json:"reason,omitempty"`
	Source     string   `json:"source"`
}

// Authoritative reports whether the verdict originates from a trusted
// override or a prior batch analysis. Only authoritative verdicts may be
// written to the shared store.
func (v Verdict) Authoritative() bool {
	switch v.Source {
	case SourceOverride, SourceBatch:
		return true
	default:
		return false
	}
}

// ConfidenceValue returns the confidence and whether one is present.
func (v Verdict) ConfidenceValue() (float64, bool) {
	if v.Confidence == nil {
		return 0, false
	}
	return *v.Confidence, true
}

// NewConfidence builds a confidence pointer clamped to [0, 1].
func NewConfidence(value float64) *float64 {
	if value < 0 {
		value = 0
	}
	if value > 1 {
		value = 1
	}
	return &value
}

// HistoryEntry is one row of the bounded recent-history trail.
type HistoryEntry struct {
	Platform   string    `json:"platform"`
	VideoID    string    `json:"video_id"`
	Title      string    `json:"title,omitempty"`
	Label      Label     `json:"label"`
	Confidence *float64  `json:"confidence,omitempty"`
	Source     string    `json:"source"`
	ObservedAt time.Time `json:"observed_at"`
}
