package monitor

import (
	"sync/atomic"

	"github.com/luki/sensorapp/internal/sensor"
)

// Feed is the sink the monitor reads from. AddLine never blocks: when the
// UI falls behind, records are dropped from the display only.
type Feed struct {
	ch      chan sensor.Record
	dropped atomic.Int64
}

// NewFeed returns a feed buffering up to size records.
func NewFeed(size int) *Feed {
	if size <= 0 {
		size = 256
	}
	return &Feed{ch: make(chan sensor.Record, size)}
}

// AddLine implements sensor.Sink.
func (f *Feed) AddLine(rec sensor.Record) {
	select {
	case f.ch <- rec:
	default:
		f.dropped.Add(1)
	}
}

// Dropped returns how many records never reached the display.
func (f *Feed) Dropped() int64 { return f.dropped.Load() }

// drain blocks for one record and then takes whatever else is buffered,
// up to max.
func (f *Feed) drain(max int) []sensor.Record {
	recs := []sensor.Record{<-f.ch}
	for len(recs) < max {
		select {
		case rec := <-f.ch:
			recs = append(recs, rec)
		default:
			return recs
		}
	}
	return recs
}
