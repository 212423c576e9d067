package display

import (
	"sync"

	"github.com/rewired-gh/hubbub/internal/models"
)

// Memory keeps committed frames in memory. It backs headless runs and tests.
type Memory struct {
	mu     sync.Mutex
	buf    buffer
	frames []models.Frame
	limit  int
}

// NewMemory creates a memory driver that keeps the last 64 frames
func NewMemory() *Memory {
	return &Memory{buf: newBuffer(), limit: 64}
}

func (m *Memory) SetPixel(x, y int, c models.RGB) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buf.set(x, y, c)
}

func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buf.clear()
}

func (m *Memory) Show() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = append(m.frames, m.buf.output())
	if len(m.frames) > m.limit {
		m.frames = m.frames[len(m.frames)-m.limit:]
	}
	return nil
}

func (m *Memory) SetBrightness(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buf.setBrightness(v)
}

func (m *Memory) SetRotation(deg int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buf.setRotation(deg)
}

func (m *Memory) Close() error { return nil }

// Frames returns the retained committed frames, oldest first
func (m *Memory) Frames() []models.Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Frame, len(m.frames))
	copy(out, m.frames)
	return out
}

// Last returns the most recently committed frame
func (m *Memory) Last() (models.Frame, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.frames) == 0 {
		return models.Frame{}, false
	}
	return m.frames[len(m.frames)-1], true
}

// Shows returns how many frames are retained
func (m *Memory) Shows() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.frames)
}
