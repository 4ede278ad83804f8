package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"syscall"
	"time"

	"scrollsafe/internal/daemon"
	"scrollsafe/internal/media"
)

// apiClient talks to the daemon's localhost HTTP API.
type apiClient struct {
	base  string
	token string
	http  *http.Client
}

func newAPIClient(base, token string) *apiClient {
	return &apiClient{
		base:  base,
		token: token,
		http:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *apiClient) Status(ctx context.Context) (daemon.Status, error) {
	var status daemon.Status
	err := c.get(ctx, "/api/status", &status)
	return status, err
}

func (c *apiClient) History(ctx context.Context) ([]media.HistoryEntry, error) {
	var payload struct {
		Entries []media.HistoryEntry `json:"entries"`
	}
	if err := c.get(ctx, "/api/history", &payload); err != nil {
		return nil, err
	}
	return payload.Entries, nil
}

// Scan asks the daemon to start a deep scan for the video tracked at the
// mount point.
func (c *apiClient) Scan(ctx context.Context, mountPoint string) error {
	body, err := json.Marshal(map[string]string{"mount_point": mountPoint})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/deep-scan", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return wrapDialError(err, c.base)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusAccepted:
		return nil
	case http.StatusConflict:
		return fmt.Errorf("a deep scan is already running for the video at %s", mountPoint)
	case http.StatusNotFound:
		return fmt.Errorf("no tracked video at mount point %s", mountPoint)
	default:
		return apiError(resp)
	}
}

func (c *apiClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return wrapDialError(err, c.base)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *apiClient) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func apiError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Error != "" {
		return fmt.Errorf("daemon api: %s (status %d)", payload.Error, resp.StatusCode)
	}
	return fmt.Errorf("daemon api: unexpected status %d", resp.StatusCode)
}

func wrapDialError(err error, base string) error {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return fmt.Errorf("connect to daemon at %s: connection refused; start the daemon with `scrollsafe run`", base)
	}
	return fmt.Errorf("connect to daemon: %w", err)
}
