package page

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"log/slog"

	"scrollsafe/internal/logging"
)

// documentFile mirrors the on-disk JSON of a replayed document.
type documentFile struct {
	URL            string          `json:"url"`
	ViewportHeight int             `json:"viewport_height"`
	Videos         []documentVideo `json:"videos"`
}

type documentVideo struct {
	MountPoint string            `json:"mount_point"`
	Bounds     documentRect      `json:"bounds"`
	Playing    bool              `json:"playing"`
	SourceURL  string            `json:"source_url,omitempty"`
	Title      string            `json:"title,omitempty"`
	Channel    string            `json:"channel,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Duration   float64           `json:"duration,omitempty"`
}

type documentRect struct {
	Top    int `json:"top"`
	Left   int `json:"left"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// FileSession replays a rendered document from a JSON file. It serves
// development and integration runs where no live host adapter is attached:
// edits to the file surface as change events, video elements keep playback
// state in process, and captures synthesize frame bytes.
type FileSession struct {
	path     string
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	snap    Snapshot
	videos  map[string]*fileVideo
	modTime time.Time
	closed  bool

	events chan Event
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewFileSession opens a file-backed session and starts watching the
// document for changes. A missing file is an empty document, not an error.
func NewFileSession(path string, interval time.Duration, logger *slog.Logger) (*FileSession, error) {
	if path == "" {
		return nil, errors.New("document path is required")
	}
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	s := &FileSession{
		path:     path,
		interval: interval,
		logger:   logging.WithComponent(logger, "page"),
		videos:   make(map[string]*fileVideo),
		events:   make(chan Event, 16),
	}
	if _, err := s.reload(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg.Add(1)
	go s.watch(ctx)
	return s, nil
}

func (s *FileSession) watch(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			event, err := s.reload()
			if err != nil {
				s.logger.Warn("document reload failed", logging.Error(err))
				continue
			}
			if event == nil {
				continue
			}
			select {
			case s.events <- *event:
			default:
				// A full buffer means a signal is already pending.
			}
		}
	}
}

// reload re-reads the document when its modification time moved and returns
// the change event to emit, if any.
func (s *FileSession) reload() (*Event, error) {
	info, err := os.Stat(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return s.apply(documentFile{}, time.Time{})
	}
	if err != nil {
		return nil, fmt.Errorf("stat document: %w", err)
	}

	s.mu.Lock()
	unchanged := !s.modTime.IsZero() && info.ModTime().Equal(s.modTime)
	s.mu.Unlock()
	if unchanged {
		return nil, nil
	}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	var doc documentFile
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("parse document: %w", err)
		}
	}
	return s.apply(doc, info.ModTime())
}

func (s *FileSession) apply(doc documentFile, modTime time.Time) (*Event, error) {
	snap := Snapshot{
		URL:            doc.URL,
		ViewportHeight: doc.ViewportHeight,
		Videos:         make([]VideoInfo, 0, len(doc.Videos)),
	}
	live := make(map[string]bool, len(doc.Videos))
	for _, video := range doc.Videos {
		snap.Videos = append(snap.Videos, VideoInfo{
			MountPoint: video.MountPoint,
			Bounds: Rect{
				Top:    video.Bounds.Top,
				Left:   video.Bounds.Left,
				Width:  video.Bounds.Width,
				Height: video.Bounds.Height,
			},
			Playing:    video.Playing,
			SourceURL:  video.SourceURL,
			Title:      video.Title,
			Channel:    video.Channel,
			Attributes: video.Attributes,
		})
		live[video.MountPoint] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	first := s.modTime.IsZero() && s.snap.URL == "" && len(s.snap.Videos) == 0
	navigated := s.snap.URL != snap.URL

	added := false
	for _, video := range doc.Videos {
		existing, ok := s.videos[video.MountPoint]
		if !ok {
			s.videos[video.MountPoint] = newFileVideo(video)
			added = true
			continue
		}
		existing.update(video)
	}
	for mount := range s.videos {
		if !live[mount] {
			delete(s.videos, mount)
		}
	}
	s.snap = snap
	s.modTime = modTime

	if first {
		return nil, nil
	}
	if navigated {
		return &Event{Kind: EventNavigation}, nil
	}
	if added {
		if platform := pushPlatform(snap.URL); platform != "" {
			return &Event{Kind: EventCandidate, Platform: platform}, nil
		}
	}
	return &Event{Kind: EventStructure}, nil
}

// pushPlatform names the platform whose feed advances fresh videos without a
// navigation; new elements there are announced as candidate pushes so
// short-lived content is not missed between polls.
func pushPlatform(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")
	if host == "tiktok.com" || host == "m.tiktok.com" {
		return "tiktok"
	}
	return ""
}

func (s *FileSession) Snapshot(context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.snap
	snap.Videos = append([]VideoInfo(nil), s.snap.Videos...)
	return &snap, nil
}

func (s *FileSession) Video(_ context.Context, mountPoint string) (VideoHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	video, ok := s.videos[mountPoint]
	if !ok {
		return nil, fmt.Errorf("mount point %q not in document", mountPoint)
	}
	return video, nil
}

// Capture synthesizes deterministic frame bytes for the region. Replayed
// documents have no pixels to encode; downstream consumers only require
// non-empty JPEG-framed payloads.
func (s *FileSession) Capture(_ context.Context, region Rect, quality float64) ([]byte, error) {
	payload := fmt.Sprintf("replay:%dx%d+%d+%d@%.2f", region.Width, region.Height, region.Left, region.Top, quality)
	frame := append([]byte{0xFF, 0xD8}, payload...)
	return append(frame, 0xFF, 0xD9), nil
}

func (s *FileSession) Events() <-chan Event {
	return s.events
}

func (s *FileSession) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	close(s.events)
	return nil
}

// fileVideo is the live handle for one replayed element.
type fileVideo struct {
	mu       sync.Mutex
	duration float64
	bounds   Rect
	state    PlaybackState
}

func newFileVideo(video documentVideo) *fileVideo {
	return &fileVideo{
		duration: video.Duration,
		bounds: Rect{
			Top:    video.Bounds.Top,
			Left:   video.Bounds.Left,
			Width:  video.Bounds.Width,
			Height: video.Bounds.Height,
		},
		state: PlaybackState{Paused: !video.Playing, Rate: 1},
	}
}

func (v *fileVideo) update(video documentVideo) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.duration = video.Duration
	v.bounds = Rect{
		Top:    video.Bounds.Top,
		Left:   video.Bounds.Left,
		Width:  video.Bounds.Width,
		Height: video.Bounds.Height,
	}
}

func (v *fileVideo) Duration(context.Context) (float64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.duration, nil
}

func (v *fileVideo) Seek(ctx context.Context, seconds float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if seconds < 0 {
		seconds = 0
	}
	if v.duration > 0 && seconds > v.duration {
		seconds = v.duration
	}
	v.state.Position = seconds
	return nil
}

func (v *fileVideo) Playback(context.Context) (PlaybackState, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state, nil
}

func (v *fileVideo) SetPlayback(_ context.Context, state PlaybackState) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state = state
	return nil
}

func (v *fileVideo) Bounds(context.Context) (Rect, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.bounds, nil
}
