package paper

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// JSONLRecorder appends committed trades as JSON lines; the journal is an audit trail and is never read back.
type JSONLRecorder struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewJSONLRecorder creates/opens the journal at path.
func NewJSONLRecorder(path string) (*JSONLRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &JSONLRecorder{
		file: file,
		enc:  json.NewEncoder(file),
	}, nil
}

// Record writes a single trade. Writes after Close are dropped.
func (r *JSONLRecorder) Record(trade Trade) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return
	}
	_ = r.enc.Encode(trade)
}

// Close closes the file handle.
func (r *JSONLRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// MemoryRecorder keeps trades in memory; useful for tests and dry runs.
type MemoryRecorder struct {
	mu     sync.Mutex
	trades []Trade
}

// Record appends a trade.
func (m *MemoryRecorder) Record(trade Trade) {
	m.mu.Lock()
	m.trades = append(m.trades, trade)
	m.mu.Unlock()
}

// Snapshot returns a copy of the recorded trades.
func (m *MemoryRecorder) Snapshot() []Trade {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Trade, len(m.trades))
	copy(out, m.trades)
	return out
}
