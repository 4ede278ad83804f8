package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"scrollsafe/internal/config"
	"scrollsafe/internal/logging"
	"scrollsafe/internal/media"
	"scrollsafe/internal/services"
)

const userAgent = "ScrollSafe-Go/0.1.0"

// Job statuses reported by the deep-scan poll interface.
const (
	JobSubmitted = "submitted"
	JobPolling   = "polling"
	JobDone      = "done"
	JobFailed    = "failed"
)

// Client talks to the ScrollSafe analysis backend. All calls honor their
// context; cancellation aborts the in-flight request.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *slog.Logger
}

// New builds a backend client from configuration.
func New(cfg *config.Config, logger *slog.Logger) *Client {
	timeout := time.Duration(cfg.Backend.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.Backend.BaseURL, "/"),
		apiKey:  cfg.Backend.APIKey,
		http:    &http.Client{Timeout: timeout},
		logger:  logging.WithComponent(logger, "backend"),
	}
}

type verdictPayload struct {
	Result     string   `json:"result"`
	Confidence *float64 `json:"confidence,omitempty"`
	Reason     string   `json:"reason,omitempty"`
	Source     string   `json:"source"`
}

func (p verdictPayload) toVerdict() media.Verdict {
	return media.Verdict{
		Label:      media.ParseLabel(p.Result),
		Confidence: p.Confidence,
		Reason:     p.Reason,
		Source:     p.Source,
	}
}

// Lookup queries the authoritative verdict store. A miss returns (nil, nil);
// it is a normal outcome, not an error.
func (c *Client) Lookup(ctx context.Context, platform, videoID string) (*media.Verdict, error) {
	endpoint := fmt.Sprintf("%s/v1/videos/%s/%s/verdict", c.baseURL, platform, videoID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrRequest, "backend", "lookup", "build request", err)
	}
	c.decorate(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrRequest, "backend", "lookup", "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError("lookup", resp)
	}

	var payload verdictPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, services.Wrap(services.ErrRequest, "backend", "lookup", "decode response", err)
	}
	verdict := payload.toVerdict()
	return &verdict, nil
}

type analyzeRequest struct {
	Platform string            `json:"platform"`
	VideoID  string            `json:"video_id"`
	Title    string            `json:"title,omitempty"`
	Channel  string            `json:"channel,omitempty"`
	URL      string            `json:"url,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Analyze issues the cheap heuristic request for a candidate.
func (c *Client) Analyze(ctx context.Context, candidate media.Candidate) (media.Verdict, error) {
	body, err := json.Marshal(analyzeRequest{
		Platform: candidate.Platform,
		VideoID:  candidate.VideoID,
		Title:    candidate.Title,
		Channel:  candidate.Channel,
		URL:      candidate.CanonicalURL,
		Metadata: candidate.Metadata,
	})
	if err != nil {
		return media.Verdict{}, services.Wrap(services.ErrRequest, "backend", "analyze", "encode request", err)
	}

	endpoint := c.baseURL + "/v1/analyze"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return media.Verdict{}, services.Wrap(services.ErrRequest, "backend", "analyze", "build request", err)
	}
	c.decorate(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return media.Verdict{}, services.Wrap(services.ErrRequest, "backend", "analyze", "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return media.Verdict{}, c.statusError("analyze", resp)
	}

	var payload verdictPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return media.Verdict{}, services.Wrap(services.ErrRequest, "backend", "analyze", "decode response", err)
	}
	return payload.toVerdict(), nil
}

// DeepScanRequest carries everything the job-start interface needs.
type DeepScanRequest struct {
	Platform     string
	VideoID      string
	CanonicalURL string
	Frames       [][]byte
	// ClientHints carries the local keyword screen result so the worker can
	// weigh self-disclosure alongside its own analysis.
	ClientHints *media.Verdict
}

// StartDeepScan submits captured frames and returns the new job id.
func (c *Client) StartDeepScan(ctx context.Context, scan DeepScanRequest) (string, error) {
	if len(scan.Frames) == 0 {
		return "", services.Wrap(services.ErrValidation, "backend", "deep-scan", "no frames", nil)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	fields := map[string]string{
		"platform":     scan.Platform,
		"video_id":     scan.VideoID,
		"url":          scan.CanonicalURL,
		"frame_policy": fmt.Sprintf("even_%d", len(scan.Frames)),
	}
	if scan.ClientHints != nil {
		hints, err := json.Marshal(verdictPayload{
			Result:     string(scan.ClientHints.Label),
			Confidence: scan.ClientHints.Confidence,
			Reason:     scan.ClientHints.Reason,
			Source:     scan.ClientHints.Source,
		})
		if err != nil {
			return "", services.Wrap(services.ErrRequest, "backend", "deep-scan", "encode client hints", err)
		}
		fields["client_hints"] = string(hints)
	}
	for name, value := range fields {
		if value == "" {
			continue
		}
		if err := writer.WriteField(name, value); err != nil {
			return "", services.Wrap(services.ErrRequest, "backend", "deep-scan", "write field", err)
		}
	}
	for i, frame := range scan.Frames {
		part, err := writer.CreateFormFile("files", fmt.Sprintf("frame_%03d.jpg", i))
		if err != nil {
			return "", services.Wrap(services.ErrRequest, "backend", "deep-scan", "create frame part", err)
		}
		if _, err := part.Write(frame); err != nil {
			return "", services.Wrap(services.ErrRequest, "backend", "deep-scan", "write frame", err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", services.Wrap(services.ErrRequest, "backend", "deep-scan", "finalize payload", err)
	}

	endpoint := c.baseURL + "/v1/deep-scan"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return "", services.Wrap(services.ErrRequest, "backend", "deep-scan", "build request", err)
	}
	c.decorate(req)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrRequest, "backend", "deep-scan", "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return "", c.statusError("deep-scan", resp)
	}

	var payload struct {
		JobID string `json:"job_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", services.Wrap(services.ErrRequest, "backend", "deep-scan", "decode response", err)
	}
	if payload.JobID == "" {
		return "", services.Wrap(services.ErrRequest, "backend", "deep-scan", "missing job id", nil)
	}
	return payload.JobID, nil
}

// JobStatus is one poll observation of a deep-scan job.
type JobStatus struct {
	Status string
	Result *media.Verdict
	Error  string
}

// Terminal reports whether the job reached a final state.
func (s JobStatus) Terminal() bool {
	return s.Status == JobDone || s.Status == JobFailed
}

// PollDeepScan fetches the current status of a job.
func (c *Client) PollDeepScan(ctx context.Context, jobID string) (JobStatus, error) {
	endpoint := c.baseURL + "/v1/deep-scan/" + jobID
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return JobStatus{}, services.Wrap(services.ErrRequest, "backend", "poll", "build request", err)
	}
	c.decorate(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return JobStatus{}, services.Wrap(services.ErrRequest, "backend", "poll", "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return JobStatus{}, c.statusError("poll", resp)
	}

	var payload struct {
		Status string          `json:"status"`
		Result *verdictPayload `json:"result,omitempty"`
		Error  string          `json:"error,omitempty"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return JobStatus{}, services.Wrap(services.ErrRequest, "backend", "poll", "decode response", err)
	}

	status := JobStatus{Status: payload.Status, Error: payload.Error}
	if payload.Result != nil {
		verdict := payload.Result.toVerdict()
		status.Result = &verdict
	}
	return status, nil
}

func (c *Client) decorate(req *http.Request) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
}

func (c *Client) statusError(operation string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	message := strings.TrimSpace(string(body))
	if message == "" {
		message = resp.Status
	}
	c.logger.Warn("backend request failed",
		logging.String("operation", operation),
		logging.Int("status", resp.StatusCode),
	)
	return services.Wrap(services.ErrRequest, "backend", operation, message, nil)
}
