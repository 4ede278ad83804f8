package testsupport

import (
	"context"
	"sync"

	"scrollsafe/internal/media"
	"scrollsafe/internal/services/backend"
)

// FakeBackend is a scriptable stand-in for the analysis backend client.
type FakeBackend struct {
	mu sync.Mutex

	// Authoritative maps "platform:videoID" to the verdict Lookup returns.
	Authoritative map[string]media.Verdict
	LookupErr     error
	lookupCalls   int

	AnalyzeVerdict media.Verdict
	AnalyzeErr     error
	// AnalyzeBlock, when set, is received from before Analyze returns so
	// tests can hold a request in flight.
	AnalyzeBlock chan struct{}
	analyzeCalls int

	StartJobID    string
	StartErr      error
	startCalls    int
	LastDeepScan  backend.DeepScanRequest
	PollResponses []backend.JobStatus
	PollErr       error
	pollCalls     int
}

func NewFakeBackend() *FakeBackend {
	return &FakeBackend{
		Authoritative: make(map[string]media.Verdict),
		StartJobID:    "job-1",
	}
}

func (f *FakeBackend) Lookup(ctx context.Context, platform, videoID string) (*media.Verdict, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookupCalls++
	if f.LookupErr != nil {
		return nil, f.LookupErr
	}
	verdict, ok := f.Authoritative[platform+":"+videoID]
	if !ok {
		return nil, nil
	}
	return &verdict, nil
}

func (f *FakeBackend) Analyze(ctx context.Context, candidate media.Candidate) (media.Verdict, error) {
	f.mu.Lock()
	block := f.AnalyzeBlock
	f.analyzeCalls++
	verdict, err := f.AnalyzeVerdict, f.AnalyzeErr
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return media.Verdict{}, ctx.Err()
		}
	}
	if ctx.Err() != nil {
		return media.Verdict{}, ctx.Err()
	}
	return verdict, err
}

func (f *FakeBackend) StartDeepScan(ctx context.Context, scan backend.DeepScanRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startCalls++
	f.LastDeepScan = scan
	if f.StartErr != nil {
		return "", f.StartErr
	}
	return f.StartJobID, nil
}

func (f *FakeBackend) PollDeepScan(ctx context.Context, jobID string) (backend.JobStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PollErr != nil {
		return backend.JobStatus{}, f.PollErr
	}
	index := f.pollCalls
	f.pollCalls++
	if len(f.PollResponses) == 0 {
		return backend.JobStatus{Status: backend.JobPolling}, nil
	}
	if index >= len(f.PollResponses) {
		index = len(f.PollResponses) - 1
	}
	return f.PollResponses[index], nil
}

// SetAuthoritative scripts a Lookup hit.
func (f *FakeBackend) SetAuthoritative(platform, videoID string, verdict media.Verdict) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Authoritative[platform+":"+videoID] = verdict
}

// LookupCalls reports how many authoritative lookups were issued.
func (f *FakeBackend) LookupCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lookupCalls
}

// AnalyzeCalls reports how many heuristic requests were issued.
func (f *FakeBackend) AnalyzeCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.analyzeCalls
}

// StartCalls reports how many deep-scan jobs were started.
func (f *FakeBackend) StartCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.startCalls
}
