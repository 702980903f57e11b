package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	kafka_config "roombook/pkg/kafka/config"
	"roombook/pkg/logger"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress"
)

// Writer is the subset of *kafka.Writer the producer depends on.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer     Writer
	dlqWriter  Writer
	topic      string
	dlqTopic   string
	middleware []ProducerMiddleware
	closed     bool
	mu         sync.RWMutex
	log        *logger.Logger
	now        func() time.Time
}

type ProducerMiddleware func(ctx context.Context, msg Message, next func(ctx context.Context, msg Message) error) error

func NewProducer(cfg *kafka_config.Config, topic string, dlqTopic string, log *logger.Logger) (*Producer, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("at least one broker is required")
	}
	if topic == "" {
		return nil, errors.New("topic cannot be empty")
	}
	if log == nil {
		log = logger.Discard()
	}

	compression := compressionCodec(cfg.ProducerCompression)
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{}, // same room, same partition
		RequiredAcks: requiredAcks(cfg.ProducerRequireAcks),
		Compression:  compression,
		MaxAttempts:  cfg.ProducerMaxAttempts,
		BatchTimeout: cfg.ProducerBatchTimeout,
		Async:        cfg.ProducerAsync,
		Logger:       kafka.LoggerFunc(func(string, ...any) {}),
		ErrorLogger:  errorLogger(log),
	}

	var dlqWriter Writer
	if dlqTopic != "" {
		dlqWriter = &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        dlqTopic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Compression:  compression,
			MaxAttempts:  3,
			Logger:       kafka.LoggerFunc(func(string, ...any) {}),
			ErrorLogger:  errorLogger(log),
		}
	}

	return NewProducerWithWriters(writer, dlqWriter, topic, dlqTopic, log), nil
}

// NewProducerWithWriters builds a producer over caller-supplied writers.
// dlq may be nil.
func NewProducerWithWriters(w Writer, dlq Writer, topic, dlqTopic string, log *logger.Logger) *Producer {
	if log == nil {
		log = logger.Discard()
	}
	return &Producer{
		writer:    w,
		dlqWriter: dlq,
		topic:     topic,
		dlqTopic:  dlqTopic,
		log:       log,
		now:       time.Now,
	}
}

func (p *Producer) Use(middleware ProducerMiddleware) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.middleware = append(p.middleware, middleware)
}

func (p *Producer) Topic() string {
	return p.topic
}

func (p *Producer) Publish(ctx context.Context, msg Message) error {
	if err := p.checkOpen(); err != nil {
		return err
	}
	if err := validate(msg); err != nil {
		return err
	}
	if msg.Topic == "" {
		msg.Topic = p.topic
	}

	p.mu.RLock()
	chain := p.publishOne
	for i := len(p.middleware) - 1; i >= 0; i-- {
		mw, next := p.middleware[i], chain
		chain = func(ctx context.Context, m Message) error {
			return mw(ctx, m, next)
		}
	}
	p.mu.RUnlock()

	return chain(ctx, msg)
}

func (p *Producer) publishOne(ctx context.Context, msg Message) error {
	return p.write(ctx, []Message{msg})
}

// PublishBatch writes all messages in one request. Any invalid message
// rejects the whole batch so that a partial event sequence is never written.
func (p *Producer) PublishBatch(ctx context.Context, messages []Message) error {
	if err := p.checkOpen(); err != nil {
		return err
	}
	if len(messages) == 0 {
		return ErrInvalidMessage
	}
	for i, msg := range messages {
		if err := validate(msg); err != nil {
			return fmt.Errorf("message %d: %w", i, err)
		}
	}
	return p.write(ctx, messages)
}

func (p *Producer) write(ctx context.Context, messages []Message) error {
	batch := make([]kafka.Message, 0, len(messages))
	for _, msg := range messages {
		batch = append(batch, msg.toKafka())
	}

	err := p.writer.WriteMessages(ctx, batch...)
	if err == nil {
		return nil
	}
	if p.dlqWriter == nil {
		return err
	}

	if dlqErr := p.sendToDLQ(ctx, messages, err); dlqErr != nil {
		return fmt.Errorf("failed to send to DLQ: %w (original error: %w)", dlqErr, err)
	}
	p.log.Warn("Kafka publish failed, messages sent to DLQ",
		"topic", p.topic,
		"dlq_topic", p.dlqTopic,
		"count", len(messages),
		"error", err,
	)
	return err
}

func (p *Producer) sendToDLQ(ctx context.Context, messages []Message, originalErr error) error {
	batch := make([]kafka.Message, 0, len(messages))
	for _, msg := range messages {
		dead := msg
		dead.Headers = copyHeaders(msg.Headers)
		dead.Headers[HeaderOriginalTopic] = p.topic
		dead.Headers[HeaderDLQError] = originalErr.Error()
		dead.Headers[HeaderDLQTimestamp] = p.now().UTC().Format(time.RFC3339)
		dead.Timestamp = p.now()
		batch = append(batch, dead.toKafka())
	}
	return p.dlqWriter.WriteMessages(ctx, batch...)
}

func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	var errs []error
	if p.writer != nil {
		errs = append(errs, p.writer.Close())
	}
	if p.dlqWriter != nil {
		errs = append(errs, p.dlqWriter.Close())
	}
	return errors.Join(errs...)
}

func (p *Producer) checkOpen() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrProducerClosed
	}
	return nil
}

func validate(msg Message) error {
	if msg.Key == "" {
		return ErrEmptyKey
	}
	if len(msg.Value) == 0 {
		return ErrEmptyValue
	}
	return nil
}

func compressionCodec(name string) compress.Compression {
	switch name {
	case "none":
		return 0
	case "gzip":
		return compress.Gzip
	case "lz4":
		return compress.Lz4
	case "zstd":
		return compress.Zstd
	default:
		return compress.Snappy
	}
}

func requiredAcks(n int) kafka.RequiredAcks {
	switch n {
	case 0:
		return kafka.RequireNone
	case 1:
		return kafka.RequireOne
	default:
		return kafka.RequireAll
	}
}

func errorLogger(log *logger.Logger) kafka.Logger {
	return kafka.LoggerFunc(func(msg string, args ...any) {
		log.Error("kafka client error", "detail", fmt.Sprintf(msg, args...))
	})
}
