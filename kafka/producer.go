package kafka

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/kushal-naga-sai-balaji/Phishing-detection-system/models"
)

type Producer struct {
	writer *kafka.Writer
}

// NewProducer builds an async writer: Publish never waits on the broker and
// delivery failures are reported through logger.
func NewProducer(brokers []string, topic string, logger *log.Logger) *Producer {
	if logger == nil {
		logger = log.Default()
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Printf("Warning: failed to deliver %d scan events: %v", len(messages), err)
			}
		},
	}

	return &Producer{writer: writer}
}

func (p *Producer) PublishScanEvent(ctx context.Context, event *models.ScanEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(event.IP),
		Value: data,
		Time:  time.Now(),
	}

	return p.writer.WriteMessages(ctx, msg)
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
