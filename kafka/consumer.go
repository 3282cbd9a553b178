package kafka

import (
	"context"
	"encoding/json"
	"log"

	"github.com/segmentio/kafka-go"

	"github.com/kushal-naga-sai-balaji/Phishing-detection-system/models"
	"github.com/kushal-naga-sai-balaji/Phishing-detection-system/repository"
)

type Consumer struct {
	reader  *kafka.Reader
	handler EventHandler
	logger  *log.Logger
}

type EventHandler interface {
	HandleScanEvent(ctx context.Context, event *models.ScanEvent) error
}

func NewConsumer(brokers []string, topic string, groupID string, handler EventHandler, logger *log.Logger) *Consumer {
	if logger == nil {
		logger = log.Default()
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3,
		MaxBytes: 10e6,
	})

	return &Consumer{
		reader:  reader,
		handler: handler,
		logger:  logger,
	}
}

func (c *Consumer) Start(ctx context.Context) {
	go func() {
		for {
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				c.logger.Printf("error reading message: %v", err)
				continue
			}

			var event models.ScanEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				c.logger.Printf("error unmarshaling event: %v", err)
				continue
			}

			if err := c.handler.HandleScanEvent(ctx, &event); err != nil {
				c.logger.Printf("error handling event %s: %v", event.ID, err)
			}
		}
	}()
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

// AuditHandler logs every event and stores it when a repository is available.
type AuditHandler struct {
	repo   *repository.ScanEventRepository
	logger *log.Logger
}

func NewAuditHandler(repo *repository.ScanEventRepository, logger *log.Logger) *AuditHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &AuditHandler{repo: repo, logger: logger}
}

func (h *AuditHandler) HandleScanEvent(ctx context.Context, event *models.ScanEvent) error {
	h.logger.Printf("Received scan event: type=%s, ip=%s, kind=%s, status=%s, score=%d, degraded=%v",
		event.EventType, event.IP, event.Kind, event.Status, event.Score, event.Degraded)
	if h.repo == nil {
		return nil
	}
	return h.repo.Create(ctx, event)
}
