package indicator

import (
	"fmt"
	"time"

	"scrollsafe/internal/media"
)

// Kind enumerates indicator states.
type Kind int

const (
	KindChecking Kind = iota
	KindResult
	KindUnknown
	KindDeepScanStart
	KindDeepScanBump
	KindDeepScanComplete
	KindDeepScanError
	KindDeepScanBusy
)

func (k Kind) String() string {
	switch k {
	case KindChecking:
		return "checking"
	case KindResult:
		return "result"
	case KindUnknown:
		return "unknown"
	case KindDeepScanStart:
		return "deep-scan-start"
	case KindDeepScanBump:
		return "deep-scan-bump"
	case KindDeepScanComplete:
		return "deep-scan-complete"
	case KindDeepScanError:
		return "deep-scan-error"
	case KindDeepScanBusy:
		return "deep-scan-busy"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// State is one opaque transition pushed to the visible badge.
type State struct {
	Kind    Kind
	Verdict *media.Verdict
	Message string
	// Retryable marks an unknown state the user can tap to retry.
	Retryable    bool
	DurationHint time.Duration
	// Ratio is the progress fill in [0, 1] for deep-scan bumps.
	Ratio float64
}

func Checking() State { return State{Kind: KindChecking} }

func Result(verdict media.Verdict) State {
	return State{Kind: KindResult, Verdict: &verdict}
}

func Unknown(message string) State {
	return State{Kind: KindUnknown, Message: message}
}

func RetryableUnknown(message string) State {
	return State{Kind: KindUnknown, Message: message, Retryable: true}
}

func DeepScanStart(hint time.Duration) State {
	return State{Kind: KindDeepScanStart, DurationHint: hint}
}

func DeepScanBump(ratio float64) State {
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	return State{Kind: KindDeepScanBump, Ratio: ratio}
}

func DeepScanComplete() State { return State{Kind: KindDeepScanComplete} }

func DeepScanError(message string) State {
	return State{Kind: KindDeepScanError, Message: message}
}

func DeepScanBusy() State { return State{Kind: KindDeepScanBusy} }

// Handle identifies one attached badge.
type Handle struct {
	MountPoint string
}

// Reporter renders pipeline state transitions. Implementations own the
// visual side entirely; the pipeline only ever calls Attach and Set.
type Reporter interface {
	Attach(mountPoint string) Handle
	Set(handle Handle, state State)
}
