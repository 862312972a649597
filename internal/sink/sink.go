// Package sink publishes resolved display snapshots to downstream consumers.
package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
)

const (
	TypeBlocks = "blocks"
	TypeStats  = "stats"
)

type Sink interface {
	Emit(ctx context.Context, typ string, v any) error
	Close() error
}

// Envelope wraps every published payload.
type Envelope struct {
	Type string          `json:"type"`
	TS   int64           `json:"ts"`
	Data json.RawMessage `json:"data"`
}

func encode(typ string, v any, now time.Time) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{
		Type: typ,
		TS:   now.UnixMilli(),
		Data: data,
	})
}

type KafkaSink struct {
	topic string
	p     sarama.SyncProducer
	now   func() time.Time
}

func NewKafkaSink(brokers []string, topic string, cfg *sarama.Config) (*KafkaSink, error) {
	if cfg == nil {
		cfg = sarama.NewConfig()
	}
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true

	p, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return NewKafkaSinkWithProducer(p, topic), nil
}

// NewKafkaSinkWithProducer wraps an existing producer.
func NewKafkaSinkWithProducer(p sarama.SyncProducer, topic string) *KafkaSink {
	return &KafkaSink{topic: topic, p: p, now: time.Now}
}

func (s *KafkaSink) Close() error {
	if s.p != nil {
		return s.p.Close()
	}
	return nil
}

// Emit publishes v keyed by typ so each snapshot kind stays ordered on one partition.
func (s *KafkaSink) Emit(ctx context.Context, typ string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b, err := encode(typ, v, s.now())
	if err != nil {
		return fmt.Errorf("failed to encode %s snapshot: %w", typ, err)
	}

	msg := &sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(typ),
		Value: sarama.ByteEncoder(b),
	}
	if _, _, err := s.p.SendMessage(msg); err != nil {
		return fmt.Errorf("kafka emit failed: %w", err)
	}
	return nil
}

// Nop discards everything.
type Nop struct{}

func (Nop) Emit(context.Context, string, any) error { return nil }
func (Nop) Close() error                            { return nil }
