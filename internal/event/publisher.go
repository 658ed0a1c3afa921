package event

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/lgcert/indigene-certificate/logger"
)

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Handler consumes one event.
type Handler interface {
	Handle(ctx context.Context, e Event) error
}

type HandlerFunc func(ctx context.Context, e Event) error

func (f HandlerFunc) Handle(ctx context.Context, e Event) error { return f(ctx, e) }

// KafkaPublisher writes events keyed by record so one record's events stay ordered.
type KafkaPublisher struct {
	writer *kafka.Writer
	log    *logger.Logger
}

func NewKafkaPublisher(brokers []string, topic string, log *logger.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		},
		log: log,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(fmt.Sprintf("%s-%d", e.RecordType, e.RecordID)),
		Value: value,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Errorf(err, "publish %s for %s %d", e.Type, e.RecordType, e.RecordID)
		return err
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// SyncPublisher hands events straight to handlers in the calling goroutine.
// It is used when no brokers are configured.
type SyncPublisher struct {
	handlers []Handler
	log      *logger.Logger
}

func NewSyncPublisher(log *logger.Logger, handlers ...Handler) *SyncPublisher {
	return &SyncPublisher{handlers: handlers, log: log}
}

func (p *SyncPublisher) Publish(ctx context.Context, e Event) error {
	for _, h := range p.handlers {
		if err := h.Handle(ctx, e); err != nil {
			p.log.Errorf(err, "handle %s for %s %d", e.Type, e.RecordType, e.RecordID)
		}
	}
	return nil
}

// Recorder keeps published events in memory.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.Events = append(r.Events, e)
	return nil
}

// Types lists recorded event types in publish order.
func (r *Recorder) Types() []Type {
	out := make([]Type, len(r.Events))
	for i, e := range r.Events {
		out[i] = e.Type
	}
	return out
}
