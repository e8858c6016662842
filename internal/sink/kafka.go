package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/luki/sensorapp/internal/sensor"
)

// NewKafkaWriter returns a writer that hashes message keys to partitions.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Kafka produces each record as a JSON message keyed by sensor type, so the
// records of one sensor stay in order on one partition.
type Kafka struct {
	w messageWriter
}

// NewKafka produces through w.
func NewKafka(w messageWriter) *Kafka {
	return &Kafka{w: w}
}

// Write implements Writer.
func (k *Kafka) Write(ctx context.Context, rec sensor.Record) error {
	value, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(rec.Type.String()),
		Value: value,
		Time:  rec.Time,
	}
	if err := k.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("produce %s record: %w", rec.Type, err)
	}
	return nil
}
