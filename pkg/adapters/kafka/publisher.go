// Package kafka publishes panel lifecycle events to a Kafka topic.
//
// Each event becomes one JSON message keyed by the session id (or the
// request id when the request has no session), so all events of a session
// land on the same partition in order.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/panel/internal/logging"
	"github.com/aretw0/panel/pkg/domain"
	"github.com/aretw0/panel/pkg/session"
	"github.com/segmentio/kafka-go"
)

// DefaultTopic receives events when no topic is configured.
const DefaultTopic = "panel.events"

// DefaultBufferSize bounds the number of events waiting to be written.
const DefaultBufferSize = 256

// ErrClosed is returned by Run after Close.
var ErrClosed = errors.New("publisher closed")

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Envelope is the JSON payload of every message.
type Envelope struct {
	Type      domain.EventType `json:"type"`
	SessionID string           `json:"session_id,omitempty"`
	RequestID string           `json:"request_id"`
	Timestamp time.Time        `json:"timestamp"`
	Payload   any              `json:"payload"`
}

// Publisher turns engine hooks into Kafka messages. Hooks never block the
// request: events are queued and written by Run; when the queue is full
// the event is dropped and logged.
type Publisher struct {
	writer MessageWriter
	queue  chan kafka.Message
	logger *slog.Logger

	closeOnce sync.Once
	closed    chan struct{}
	done      chan struct{}
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithLogger sets the publisher logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithBufferSize overrides DefaultBufferSize.
func WithBufferSize(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.queue = make(chan kafka.Message, n)
		}
	}
}

// NewWriter builds a kafka.Writer for a comma separated broker list.
func NewWriter(brokers, topic string) *kafka.Writer {
	if topic == "" {
		topic = DefaultTopic
	}
	return &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(brokers, ",")...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
}

// NewPublisher wraps w. Call Run to start delivering.
func NewPublisher(w MessageWriter, opts ...Option) *Publisher {
	p := &Publisher{
		writer: w,
		queue:  make(chan kafka.Message, DefaultBufferSize),
		logger: logging.NewNop(),
		closed: make(chan struct{}),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run writes queued events until ctx is done or Close is called. Events
// still queued at that point are flushed before Run returns.
func (p *Publisher) Run(ctx context.Context) error {
	defer close(p.done)
	for {
		select {
		case msg := <-p.queue:
			p.write(ctx, msg)
		case <-ctx.Done():
			p.drain(context.WithoutCancel(ctx))
			return ctx.Err()
		case <-p.closed:
			p.drain(ctx)
			return ErrClosed
		}
	}
}

func (p *Publisher) drain(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	for {
		select {
		case msg := <-p.queue:
			p.write(ctx, msg)
		default:
			return
		}
	}
}

func (p *Publisher) write(ctx context.Context, msg kafka.Message) {
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Warn("kafka: publish failed", "key", string(msg.Key), "err", err)
	}
}

// Close stops Run, waits for it to flush and closes the writer.
// It must only be called after Run has been started.
func (p *Publisher) Close() error {
	p.closeOnce.Do(func() { close(p.closed) })
	<-p.done
	return p.writer.Close()
}

func (p *Publisher) enqueue(ctx context.Context, typ domain.EventType, base domain.EventBase, payload any) {
	sessionID, _ := session.IDFromContext(ctx)
	env := Envelope{
		Type:      typ,
		SessionID: sessionID,
		RequestID: base.RequestID,
		Timestamp: base.Timestamp,
		Payload:   payload,
	}
	data, err := json.Marshal(env)
	if err != nil {
		p.logger.Error("kafka: encode event failed", "type", typ, "err", err)
		return
	}

	key := sessionID
	if key == "" {
		key = base.RequestID
	}
	msg := kafka.Message{
		Key:     []byte(key),
		Value:   data,
		Time:    base.Timestamp,
		Headers: []kafka.Header{{Key: "event_type", Value: []byte(typ)}},
	}

	select {
	case p.queue <- msg:
	default:
		p.logger.Warn("kafka: queue full, dropping event", "type", typ, "key", key)
	}
}

// Hooks returns the hooks to install on the engine.
func (p *Publisher) Hooks() domain.Hooks {
	return domain.Hooks{
		OnOpinion: func(ctx context.Context, e *domain.OpinionEvent) {
			p.enqueue(ctx, domain.EventOpinion, e.EventBase, e)
		},
		OnSynthesisStart: func(ctx context.Context, e *domain.SynthesisEvent) {
			p.enqueue(ctx, domain.EventSynthesisStart, e.EventBase, e)
		},
		OnResponse: func(ctx context.Context, e *domain.ResponseEvent) {
			p.enqueue(ctx, domain.EventResponse, e.EventBase, e)
		},
		OnError: func(ctx context.Context, e *domain.ErrorEvent) {
			p.enqueue(ctx, domain.EventError, e.EventBase, e)
		},
	}
}

// String describes the publisher for logs.
func (p *Publisher) String() string {
	if w, ok := p.writer.(*kafka.Writer); ok {
		return fmt.Sprintf("kafka(%s -> %s)", w.Addr, w.Topic)
	}
	return "kafka"
}
