package detect

import (
	"fmt"

	"scrollsafe/internal/media"
	"scrollsafe/internal/page"
)

// Detector locates the currently-relevant video for one platform. Match is a
// cheap applicability check; Detect extracts a candidate or returns nil when
// no eligible video exists on this pass. Detectors are stateless per call.
type Detector interface {
	Platform() string
	Match(snap *page.Snapshot) bool
	Detect(snap *page.Snapshot) *media.Candidate
}

// Registry holds detectors in a fixed trial order. It is append-only during
// startup and read-only afterwards; the pipeline receives it by injection
// rather than through package globals.
type Registry struct {
	detectors []Detector
	sealed    bool
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends a detector. Registration order is trial order.
func (r *Registry) Register(det Detector) error {
	if r.sealed {
		return fmt.Errorf("detector registry is sealed")
	}
	if det == nil {
		return fmt.Errorf("detector must not be nil")
	}
	for _, existing := range r.detectors {
		if existing.Platform() == det.Platform() {
			return fmt.Errorf("detector for platform %q already registered", det.Platform())
		}
	}
	r.detectors = append(r.detectors, det)
	return nil
}

// Seal marks startup registration finished.
func (r *Registry) Seal() {
	r.sealed = true
}

// Platforms returns the registered platform ids in trial order.
func (r *Registry) Platforms() []string {
	names := make([]string, 0, len(r.detectors))
	for _, det := range r.detectors {
		names = append(names, det.Platform())
	}
	return names
}

// Resolve tries detectors in registration order and stops at the first whose
// Match succeeds. A matching detector that extracts no candidate ends the
// pass with nil; that is a skip, not an error.
func (r *Registry) Resolve(snap *page.Snapshot) *media.Candidate {
	if snap == nil {
		return nil
	}
	for _, det := range r.detectors {
		if !det.Match(snap) {
			continue
		}
		candidate := det.Detect(snap)
		if candidate != nil && !candidate.Valid() {
			return nil
		}
		return candidate
	}
	return nil
}

// DefaultRegistry builds a sealed registry containing the built-in detectors
// for the requested platforms, in the given order. Unknown platform names
// are rejected.
func DefaultRegistry(platforms []string) (*Registry, error) {
	registry := NewRegistry()
	for _, platform := range platforms {
		var det Detector
		switch platform {
		case PlatformYouTube:
			det = NewYouTube()
		case PlatformTikTok:
			det = NewTikTok()
		case PlatformReels:
			det = NewReels()
		default:
			return nil, fmt.Errorf("unknown platform %q", platform)
		}
		if err := registry.Register(det); err != nil {
			return nil, err
		}
	}
	registry.Seal()
	return registry, nil
}
