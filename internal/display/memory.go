package display

import (
	"bytes"
	"context"
	"image/png"
	"sync"

	ferrors "git.home.luguber.info/inful/inkframe/internal/foundation/errors"
	"git.home.luguber.info/inful/inkframe/internal/fileutil"
)

// Memory is a software panel. Each refresh optionally writes the decoded
// frame as PNG, which makes hardware-less runs inspectable.
type Memory struct {
	mu        sync.Mutex
	format    PackedFormat
	snapshot  string
	loaded    []byte
	refreshes int
	asleep    bool
}

func NewMemory(format PackedFormat, snapshotPath string) *Memory {
	return &Memory{format: format, snapshot: snapshotPath}
}

func (m *Memory) Initialize(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.asleep = false
	return nil
}

func (m *Memory) LoadImage(data []byte) error {
	if _, err := DecodePacked(data, m.format); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loaded = append(m.loaded[:0], data...)
	return nil
}

func (m *Memory) Refresh(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loaded == nil {
		return ferrors.InternalError("refresh without a loaded image").Build()
	}
	m.refreshes++
	if m.snapshot == "" {
		return nil
	}
	img, err := DecodePacked(m.loaded, m.format)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryInternal, "failed to encode snapshot").Build()
	}
	return fileutil.WriteAtomic(m.snapshot, buf.Bytes(), 0o644)
}

func (m *Memory) Sleep() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.asleep = true
	return nil
}

// Refreshes returns how many refreshes completed.
func (m *Memory) Refreshes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshes
}
