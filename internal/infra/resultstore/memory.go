package resultstore

import (
	"context"
	"sync"

	"github.com/bryanwahyu/lifeline-triage/internal/domain/assessment"
)

// Key is the slot name the uploader publishes under and the viewer reads
// from. It survives from the original cross-page storage contract.
const Key = "analysisResult"

// Memory is an in-process ResultStore holding the most recent result JSON
// verbatim. Put stores the exact bytes; Get returns them unchanged.
type Memory struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{slots: make(map[string][]byte)}
}

func (m *Memory) Put(_ context.Context, raw []byte) error {
	cp := make([]byte, len(raw))
	copy(cp, raw)

	m.mu.Lock()
	m.slots[Key] = cp
	m.mu.Unlock()
	return nil
}

func (m *Memory) Get(_ context.Context) ([]byte, error) {
	m.mu.RLock()
	raw, ok := m.slots[Key]
	m.mu.RUnlock()

	if !ok {
		return nil, assessment.ErrNoData
	}
	cp := make([]byte, len(raw))
	copy(cp, raw)
	return cp, nil
}
