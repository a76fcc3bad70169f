package chat

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// TranscriptLogger records chat turns for later review.
type TranscriptLogger interface {
	Log(event TranscriptEvent)
	Close() error
}

// TranscriptEvent is one line of a session transcript file.
type TranscriptEvent struct {
	Timestamp  string         `json:"ts"`
	ClientCode string         `json:"client_code,omitempty"`
	SessionID  string         `json:"session_id"`
	Generation uint64         `json:"generation"`
	Role       Role           `json:"role"`
	Phase      PhaseName      `json:"phase"`
	ContentRaw string         `json:"content_raw"`
	Content    string         `json:"content"`
	Meta       map[string]any `json:"meta,omitempty"`
}

// TranscriptLogConfig configures the NDJSON transcript writer.
type TranscriptLogConfig struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

type noopTranscriptLogger struct{}

func (noopTranscriptLogger) Log(TranscriptEvent) {}
func (noopTranscriptLogger) Close() error        { return nil }

type fileTranscriptLogger struct {
	dir    string
	queue  chan TranscriptEvent
	logger *slog.Logger
	wg     sync.WaitGroup
	once   sync.Once
}

// NewTranscriptLogger returns an asynchronous NDJSON writer that appends each
// event to <dir>/<client_code>/<session_id>.ndjson. It returns a no-op logger
// when disabled.
func NewTranscriptLogger(cfg TranscriptLogConfig, logger *slog.Logger) (TranscriptLogger, error) {
	if !cfg.Enabled {
		return noopTranscriptLogger{}, nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Dir == "" {
		return nil, fmt.Errorf("transcript log dir is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("create transcript dir: %w", err)
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}

	l := &fileTranscriptLogger{
		dir:    cfg.Dir,
		queue:  make(chan TranscriptEvent, cfg.QueueSize),
		logger: logger,
	}
	l.wg.Add(1)
	go l.run()
	return l, nil
}

// Log enqueues an event. Events are dropped when the queue is full.
func (l *fileTranscriptLogger) Log(event TranscriptEvent) {
	defer func() {
		// Log after Close must not panic the caller.
		_ = recover()
	}()
	select {
	case l.queue <- event:
	default:
		l.logger.Warn("Transcript queue full, dropping event",
			"session_id", event.SessionID,
			"role", event.Role)
	}
}

func (l *fileTranscriptLogger) Close() error {
	l.once.Do(func() {
		close(l.queue)
	})
	l.wg.Wait()
	return nil
}

func (l *fileTranscriptLogger) run() {
	defer l.wg.Done()
	for event := range l.queue {
		if err := l.write(event); err != nil {
			l.logger.Error("Failed to write transcript event",
				"error", err,
				"session_id", event.SessionID)
		}
	}
}

func (l *fileTranscriptLogger) write(event TranscriptEvent) error {
	owner := safePathSegment(event.ClientCode)
	if owner == "" {
		owner = "anonymous"
	}
	session := safePathSegment(event.SessionID)
	if session == "" {
		return fmt.Errorf("missing session id")
	}

	dir := filepath.Join(l.dir, owner)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create transcript dir: %w", err)
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode transcript event: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(dir, session+".ndjson"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("open transcript file: %w", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		_ = f.Close()
		return fmt.Errorf("append transcript event: %w", err)
	}
	return f.Close()
}

var (
	unsafePathChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)
	controlChars    = regexp.MustCompile(`[\x00-\x08\x0b-\x1f\x7f]`)
	spaceRuns       = regexp.MustCompile(`[ \t]+`)
)

func safePathSegment(s string) string {
	s = unsafePathChars.ReplaceAllString(strings.TrimSpace(s), "_")
	return strings.Trim(s, ".")
}

// readableText strips control characters and collapses runs of blanks.
func readableText(s string) string {
	s = controlChars.ReplaceAllString(s, "")
	s = spaceRuns.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
