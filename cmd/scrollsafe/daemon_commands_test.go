package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"scrollsafe/internal/daemon"
	"scrollsafe/internal/media"
	"scrollsafe/internal/pipeline"
)

type stubDaemonAPI struct {
	status       daemon.Status
	history      []media.HistoryEntry
	scanStatus   int
	scanError    string
	scanRequests atomic.Int64
	lastMount    atomic.Value
}

func (s *stubDaemonAPI) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.NotFound(w, r)
			return
		}
		writeStubJSON(t, w, http.StatusOK, s.status)
	})
	mux.HandleFunc("/api/history", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.NotFound(w, r)
			return
		}
		writeStubJSON(t, w, http.StatusOK, map[string]any{"entries": s.history})
	})
	mux.HandleFunc("/api/deep-scan", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		s.scanRequests.Add(1)
		var payload struct {
			MountPoint string `json:"mount_point"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err == nil {
			s.lastMount.Store(payload.MountPoint)
		}
		status := s.scanStatus
		if status == 0 {
			status = http.StatusAccepted
		}
		body := map[string]any{"accepted": status == http.StatusAccepted}
		if s.scanError != "" {
			body = map[string]any{"error": s.scanError}
		}
		writeStubJSON(t, w, status, body)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeStubJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("encode stub response: %v", err)
	}
}

func TestStatusCommandRendersMounts(t *testing.T) {
	env := setupCLITestEnv(t)
	stub := &stubDaemonAPI{
		status: daemon.Status{
			Running:       true,
			HistoryDBPath: "/tmp/history.db",
			APIAddress:    "127.0.0.1:9555",
			Mounts: []pipeline.MountStatus{
				{
					MountPoint: "feed-item-3",
					Platform:   "youtube",
					VideoID:    "abc123",
					Title:      "Morning run",
					Verdict: &media.Verdict{
						Label:      media.LabelVerified,
						Confidence: media.NewConfidence(0.92),
						Source:     media.SourceBatch,
					},
				},
				{
					MountPoint: "feed-item-4",
					Platform:   "tiktok",
					VideoID:    "731",
					DeepScan:   true,
				},
			},
		},
	}
	srv := stub.server(t)

	out, _, err := runCLI(t, []string{"status"}, srv.URL, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "ScrollSafe Daemon")
	requireContains(t, out, "[OK] yes")
	requireContains(t, out, "feed-item-3")
	requireContains(t, out, "verified")
	requireContains(t, out, "92%")
	requireContains(t, out, "checking")
}

func TestStatusCommandJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	stub := &stubDaemonAPI{
		status: daemon.Status{Running: true, HistoryDBPath: "/tmp/history.db"},
	}
	srv := stub.server(t)

	out, _, err := runCLI(t, []string{"status", "--json"}, srv.URL, env.configPath)
	if err != nil {
		t.Fatalf("status --json: %v", err)
	}
	var decoded daemon.Status
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("decode status output: %v", err)
	}
	if !decoded.Running {
		t.Fatal("expected running=true in JSON output")
	}
}

func TestStatusCommandNoMounts(t *testing.T) {
	env := setupCLITestEnv(t)
	stub := &stubDaemonAPI{status: daemon.Status{Running: true}}
	srv := stub.server(t)

	out, _, err := runCLI(t, []string{"status"}, srv.URL, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "No tracked videos")
}

func TestHistoryCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	observed := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	stub := &stubDaemonAPI{
		history: []media.HistoryEntry{
			{
				Platform:   "youtube",
				VideoID:    "abc123",
				Title:      "Morning run",
				Label:      media.LabelVerified,
				Confidence: media.NewConfidence(0.92),
				Source:     media.SourceBatch,
				ObservedAt: observed,
			},
			{
				Platform:   "tiktok",
				VideoID:    "731",
				Label:      media.LabelSuspicious,
				Confidence: media.NewConfidence(0.74),
				Source:     media.SourceHeuristic,
				ObservedAt: observed.Add(-time.Minute),
			},
		},
	}
	srv := stub.server(t)

	out, _, err := runCLI(t, []string{"history"}, srv.URL, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "abc123")
	requireContains(t, out, "Morning run")
	requireContains(t, out, "suspicious")
	requireContains(t, out, "74%")
	requireContains(t, out, "heuristic")
}

func TestHistoryCommandEmpty(t *testing.T) {
	env := setupCLITestEnv(t)
	stub := &stubDaemonAPI{}
	srv := stub.server(t)

	out, _, err := runCLI(t, []string{"history"}, srv.URL, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No history yet")
}

func TestScanCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	stub := &stubDaemonAPI{}
	srv := stub.server(t)

	out, _, err := runCLI(t, []string{"scan", "feed-item-3"}, srv.URL, env.configPath)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	requireContains(t, out, "Deep scan started for feed-item-3")
	if got := stub.scanRequests.Load(); got != 1 {
		t.Fatalf("expected 1 scan request, got %d", got)
	}
	if mount, _ := stub.lastMount.Load().(string); mount != "feed-item-3" {
		t.Fatalf("unexpected mount point in request: %q", mount)
	}
}

func TestScanCommandErrors(t *testing.T) {
	tests := []struct {
		name       string
		scanStatus int
		scanError  string
		want       string
	}{
		{
			name:       "busy",
			scanStatus: http.StatusConflict,
			scanError:  "deep scan already running",
			want:       "already running",
		},
		{
			name:       "unknown mount",
			scanStatus: http.StatusNotFound,
			scanError:  "no tracked video",
			want:       "no tracked video at mount point",
		},
		{
			name:       "server failure",
			scanStatus: http.StatusInternalServerError,
			scanError:  "boom",
			want:       "boom",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := setupCLITestEnv(t)
			stub := &stubDaemonAPI{scanStatus: tc.scanStatus, scanError: tc.scanError}
			srv := stub.server(t)

			_, _, err := runCLI(t, []string{"scan", "feed-item-9"}, srv.URL, env.configPath)
			if err == nil {
				t.Fatal("expected scan error")
			}
			requireContains(t, err.Error(), tc.want)
		})
	}
}
