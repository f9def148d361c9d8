package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/uhyunpark/limitbook/pkg/app/core/trade"
)

// Publisher ships recorded trades to downstream consumers.
type Publisher interface {
	PublishTrade(ctx context.Context, t trade.Trade) error
	Close() error
}

type NopPublisher struct{}

func (NopPublisher) PublishTrade(context.Context, trade.Trade) error { return nil }
func (NopPublisher) Close() error                                   { return nil }

// KafkaPublisher writes one message per trade, keyed by currency pair so a
// pair's trades stay ordered within a partition.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

func (p *KafkaPublisher) PublishTrade(ctx context.Context, t trade.Trade) error {
	msg, err := tradeMessage(t)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish trade %d: %w", t.ID, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func tradeMessage(t trade.Trade) (kafka.Message, error) {
	value, err := json.Marshal(t)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal trade %d: %w", t.ID, err)
	}
	return kafka.Message{
		Key:   []byte(t.Instrument),
		Value: value,
		Time:  t.TradedAt,
	}, nil
}

var (
	_ Publisher = NopPublisher{}
	_ Publisher = (*KafkaPublisher)(nil)
)
