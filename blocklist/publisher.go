package blocklist

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// BlockMessage is consumed by firewall workers bound to the exchange.
type BlockMessage struct {
	IPs      []string `json:"ips"`
	Duration string   `json:"duration"`
}

// Publisher fans block decisions out over a durable fanout exchange.
type Publisher struct {
	conn     *amqp.Connection
	mu       sync.Mutex
	channel  *amqp.Channel
	exchange string
	logger   *log.Logger
}

func NewPublisher(url, exchange string, logger *log.Logger) (*Publisher, error) {
	if logger == nil {
		logger = log.Default()
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "fanout", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	return &Publisher{conn: conn, channel: ch, exchange: exchange, logger: logger}, nil
}

func NewBlockMessage(ip string, d time.Duration) BlockMessage {
	return BlockMessage{IPs: []string{ip}, Duration: d.String()}
}

func (p *Publisher) PublishBlock(ctx context.Context, ip string, d time.Duration) error {
	body, err := json.Marshal(NewBlockMessage(ip, d))
	if err != nil {
		return err
	}

	// amqp channels are not safe for concurrent publishing.
	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(ctx, p.exchange, "", false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish block for %s: %w", ip, err)
	}
	p.logger.Printf("Published block of %s for %s to %s", ip, d, p.exchange)
	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		p.channel.Close()
	}
	return p.conn.Close()
}
