package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/luki/sensorapp/internal/sensor"
)

const createRecordsTable = `CREATE TABLE IF NOT EXISTS sensor_records (
	id          BIGSERIAL PRIMARY KEY,
	sensor_type TEXT        NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL,
	record      JSONB       NOT NULL
)`

const insertRecord = `INSERT INTO sensor_records (sensor_type, recorded_at, record) VALUES ($1, $2, $3)`

// OpenPostgres opens and pings a lib/pq connection pool.
func OpenPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// Postgres inserts one row per record into sensor_records.
type Postgres struct {
	db *sql.DB
}

// NewPostgres creates the table if needed.
func NewPostgres(ctx context.Context, db *sql.DB) (*Postgres, error) {
	if _, err := db.ExecContext(ctx, createRecordsTable); err != nil {
		return nil, fmt.Errorf("create sensor_records: %w", err)
	}
	return &Postgres{db: db}, nil
}

// Write implements Writer.
func (p *Postgres) Write(ctx context.Context, rec sensor.Record) error {
	doc, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if _, err := p.db.ExecContext(ctx, insertRecord, rec.Type.String(), rec.Time, string(doc)); err != nil {
		return fmt.Errorf("insert %s record: %w", rec.Type, err)
	}
	return nil
}
