// Package journal persists reconciliation alerts as hourly zstd-compressed
// JSONL files.
package journal

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"harvesthorizon/internal/app/ports"
)

const hourLayout = "2006-01-02-15"

type JSONLZstdWriter struct {
	baseDir string
	prefix  string
	now     func() time.Time

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string, now func() time.Time) *JSONLZstdWriter {
	if now == nil {
		now = time.Now
	}
	return &JSONLZstdWriter{baseDir: baseDir, prefix: prefix, now: now}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

// Write appends one JSON line. Each record is flushed to a complete zstd
// block so a crash loses at most the record being written.
func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := w.now().UTC().Format(hourLayout)
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	if err := w.w.Flush(); err != nil {
		return err
	}
	return w.enc.Flush()
}

func (w *JSONLZstdWriter) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.baseDir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.PathForHour(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 32*1024)
	w.curHour = hour
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	w.curHour = ""
	return err
}

func (w *JSONLZstdWriter) PathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// AlertJournal implements ports.AlertSink. Every alert is logged at ERROR and,
// when a writer is configured, appended to the journal.
type AlertJournal struct {
	w      *JSONLZstdWriter
	logger *slog.Logger
}

func NewAlertJournal(dir string, logger *slog.Logger, now func() time.Time) *AlertJournal {
	if logger == nil {
		logger = slog.Default()
	}
	j := &AlertJournal{logger: logger}
	if dir != "" {
		j.w = NewJSONLZstdWriter(dir, "alerts", now)
	}
	return j
}

func (j *AlertJournal) Raise(_ context.Context, a ports.Alert) {
	j.logger.Error("reconciliation alert",
		"kind", a.Kind,
		"outcome_id", a.OutcomeID,
		"map_id", a.MapID,
		"owner_id", a.OwnerID,
		"action_kind", a.ActionKind,
		"message", a.Message,
	)
	if j.w == nil {
		return
	}
	if err := j.w.Write(a); err != nil {
		j.logger.Error("alert journal write", "outcome_id", a.OutcomeID, "err", err)
	}
}

func (j *AlertJournal) Close() error {
	if j.w == nil {
		return nil
	}
	return j.w.Close()
}

// ReadAlerts decodes every alert of one journal file. A file still open for
// writing ends mid-frame; its complete records are returned.
func ReadAlerts(path string) ([]ports.Alert, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []ports.Alert
	jd := json.NewDecoder(dec)
	for {
		var a ports.Alert
		if err := jd.Decode(&a); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return out, nil
			}
			return out, fmt.Errorf("decode alert: %w", err)
		}
		out = append(out, a)
	}
}
