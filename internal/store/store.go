// Package store handles persistent JSON-lines storage of sensor records
// with daily file rotation. Data is stored in ~/.sensorapp-data/ unless
// another directory is configured.
package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/luki/sensorapp/internal/sensor"
)

const (
	dirName    = ".sensorapp-data"
	fileLayout = "2006-01-02"
	fileExt    = ".jsonl"
)

// DiskStore appends records to one file per day:
//
//	~/.sensorapp-data/YYYY-MM-DD.jsonl
//
// Each line is the JSON form of one sensor.Record. DiskStore is safe for
// concurrent use and is the default sink of the recorder.
type DiskStore struct {
	dir    string
	clock  clock.Clock
	logger *zap.Logger

	mu      sync.Mutex
	current *os.File
	curDate string
	lines   int
}

// Option configures a DiskStore.
type Option func(*DiskStore)

// WithClock sets the clock used for records without a timestamp.
func WithClock(c clock.Clock) Option {
	return func(d *DiskStore) { d.clock = c }
}

// WithLogger sets the logger for write failures.
func WithLogger(l *zap.Logger) Option {
	return func(d *DiskStore) { d.logger = l }
}

// New creates a disk store in dir, creating the directory if needed. An
// empty dir selects DefaultDir.
func New(dir string, opts ...Option) (*DiskStore, error) {
	if dir == "" {
		dir = DefaultDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create data dir: %w", err)
	}
	d := &DiskStore{dir: dir, clock: clock.New(), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Dir returns the directory the store writes to.
func (d *DiskStore) Dir() string { return d.dir }

// Write appends one record to the file of the record's day.
func (d *DiskStore) Write(_ context.Context, rec sensor.Record) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	t := rec.Time
	if t.IsZero() {
		t = d.clock.Now()
	}
	dateStr := t.Format(fileLayout)

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.curDate != dateStr || d.current == nil {
		d.closeLocked()
		path := filepath.Join(d.dir, dateStr+fileExt)
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		d.current = f
		d.curDate = dateStr
	}

	if _, err := d.current.Write(line); err != nil {
		return fmt.Errorf("append to %s: %w", d.current.Name(), err)
	}
	d.lines++
	return nil
}

// AddLine implements sensor.Sink. Failures are logged and the record is
// lost.
func (d *DiskStore) AddLine(rec sensor.Record) {
	if err := d.Write(context.Background(), rec); err != nil {
		d.logger.Error("store write failed",
			zap.String("sensor", rec.Type.String()),
			zap.Error(err))
	}
}

// Lines returns how many records were written since the store was opened.
func (d *DiskStore) Lines() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lines
}

// Close closes the current file.
func (d *DiskStore) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closeLocked()
}

func (d *DiskStore) closeLocked() error {
	if d.current == nil {
		return nil
	}
	err := d.current.Close()
	d.current = nil
	d.curDate = ""
	return err
}

// ListDays returns available log dates (newest first).
func ListDays(dir string) ([]string, error) {
	if dir == "" {
		dir = DefaultDir()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var days []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasSuffix(name, fileExt) {
			days = append(days, strings.TrimSuffix(name, fileExt))
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(days)))
	return days, nil
}

// LoadDay reads all records from a specific day's file.
func LoadDay(dir, day string) ([]sensor.Record, error) {
	if dir == "" {
		dir = DefaultDir()
	}
	return LoadFile(filepath.Join(dir, day+fileExt))
}

// LoadFile reads all records from a JSON-lines file. Lines that do not
// decode, such as a torn final line, are skipped.
func LoadFile(path string) ([]sensor.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []sensor.Record
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec sensor.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, scanner.Err()
}

// DefaultDir returns the path to the default data directory.
func DefaultDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, dirName)
}
