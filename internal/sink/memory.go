package sink

import (
	"sync"

	"github.com/luki/sensorapp/internal/sensor"
)

// Memory keeps every record in memory.
type Memory struct {
	mu      sync.Mutex
	records []sensor.Record
}

// AddLine implements sensor.Sink.
func (m *Memory) AddLine(rec sensor.Record) {
	m.mu.Lock()
	m.records = append(m.records, rec)
	m.mu.Unlock()
}

// Records returns a copy of the records seen so far.
func (m *Memory) Records() []sensor.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]sensor.Record, len(m.records))
	copy(out, m.records)
	return out
}

// Len returns the number of records seen so far.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// Reset drops all records.
func (m *Memory) Reset() {
	m.mu.Lock()
	m.records = nil
	m.mu.Unlock()
}
