package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const TopicOrderCreated = "order.created"

var (
	producerTracer = otel.Tracer("messaging/producer")
	producerMeter  = otel.Meter("messaging/producer")
)

// Producer writes JSON events to one topic. Messages with the same key land on the same
// partition.
type Producer struct {
	writer    *kafka.Writer
	topic     string
	published metric.Int64Counter
}

type ProducerOption func(*kafka.Writer)

// WithBatchTimeout bounds how long a message waits for a batch to fill.
func WithBatchTimeout(d time.Duration) ProducerOption {
	return func(w *kafka.Writer) {
		w.BatchTimeout = d
	}
}

func WithMaxAttempts(n int) ProducerOption {
	return func(w *kafka.Writer) {
		w.MaxAttempts = n
	}
}

func NewProducer(brokers []string, topic string, opts ...ProducerOption) *Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		BatchTimeout:           100 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
	}
	for _, opt := range opts {
		opt(w)
	}

	// A nil counter only happens with a broken meter provider; Publish skips it then.
	published, _ := producerMeter.Int64Counter("messaging.producer.messages",
		metric.WithDescription("Messages handed to the broker, by outcome"),
	)

	return &Producer{
		writer:    w,
		topic:     topic,
		published: published,
	}
}

func (p *Producer) Topic() string {
	return p.topic
}

// Publish encodes event as JSON and writes it under key, carrying the caller's trace.
func (p *Producer) Publish(ctx context.Context, key string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", p.topic, err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/json")},
		},
	}

	ctx, span := producerTracer.Start(ctx, "send "+p.topic,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingOperationName("send"),
			semconv.MessagingOperationTypePublish,
			semconv.MessagingDestinationName(p.topic),
			semconv.MessagingKafkaMessageKey(key),
			semconv.MessagingMessageBodySize(len(data)),
		),
	)
	defer span.End()

	otel.GetTextMapPropagator().Inject(ctx, NewMessageCarrier(&msg))

	err = p.writer.WriteMessages(ctx, msg)
	p.record(ctx, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("write %s message: %w", p.topic, err)
	}
	return nil
}

func (p *Producer) record(ctx context.Context, err error) {
	if p.published == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	p.published.Add(ctx, 1, metric.WithAttributes(
		semconv.MessagingDestinationName(p.topic),
		attribute.String("outcome", outcome),
	))
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
