package kafka

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// MessageHandler handles raw messages from the consumed topic.
type MessageHandler interface {
	Handle(context.Context, []byte) error
}

// Consumer wraps a Kafka reader with a worker pool.
type Consumer struct {
	cfg      *ConsumerConfig
	reader   *kafka.Reader
	handler  MessageHandler
	msgChan  chan kafka.Message
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewConsumer creates a consumer for a single topic.
func NewConsumer(handler MessageHandler, opts ...ConsumerOption) (*Consumer, error) {
	cfg := &ConsumerConfig{
		Workers:    2,
		BufferSize: 256,
		RetryMax:   3,
		BackoffMin: 200 * time.Millisecond,
		BackoffMax: 5 * time.Second,
		MinBytes:   1,
		MaxBytes:   10 << 20,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("topic is required")
	}
	if handler == nil {
		return nil, fmt.Errorf("handler is required")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: cfg.MinBytes,
		MaxBytes: cfg.MaxBytes,
	})

	return &Consumer{
		cfg:      cfg,
		reader:   reader,
		handler:  handler,
		msgChan:  make(chan kafka.Message, cfg.BufferSize),
		stopChan: make(chan struct{}),
	}, nil
}

// Start launches the fetch loop and worker pool. Non-blocking.
func (c *Consumer) Start(ctx context.Context) {
	c.wg.Add(1)
	go c.fetchLoop(ctx)

	for i := 0; i < c.cfg.Workers; i++ {
		c.wg.Add(1)
		go c.worker(ctx)
	}
}

func (c *Consumer) fetchLoop(ctx context.Context) {
	defer c.wg.Done()
	defer close(c.msgChan)

	for {
		select {
		case <-c.stopChan:
			return
		case <-ctx.Done():
			return
		default:
		}

		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			log.Printf("kafka: fetch error: %v", err)
			time.Sleep(c.cfg.BackoffMin)
			continue
		}

		select {
		case c.msgChan <- m:
		case <-c.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (c *Consumer) worker(ctx context.Context) {
	defer c.wg.Done()

	for m := range c.msgChan {
		if err := c.handleWithRetry(ctx, m.Value); err != nil {
			log.Printf("kafka: message dropped after %d attempts: %v", c.cfg.RetryMax, err)
		}
		if err := c.reader.CommitMessages(ctx, m); err != nil {
			log.Printf("kafka: commit error: %v", err)
		}
	}
}

func (c *Consumer) handleWithRetry(ctx context.Context, data []byte) error {
	var err error
	for attempt := 0; attempt <= c.cfg.RetryMax; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.backoff(attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err = c.handler.Handle(ctx, data); err == nil {
			return nil
		}
	}
	return err
}

// backoff returns a jittered exponential delay for the given attempt.
func (c *Consumer) backoff(attempt int) time.Duration {
	d := c.cfg.BackoffMin << uint(attempt-1)
	if d > c.cfg.BackoffMax {
		d = c.cfg.BackoffMax
	}
	jitter := time.Duration(rand.Int63n(int64(c.cfg.BackoffMin)))
	return d + jitter
}

// Stop shuts the consumer down and waits for in-flight messages.
func (c *Consumer) Stop() error {
	c.stopOnce.Do(func() {
		close(c.stopChan)
	})
	c.wg.Wait()
	return c.reader.Close()
}
