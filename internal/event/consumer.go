package event

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/segmentio/kafka-go"

	"github.com/lgcert/indigene-certificate/logger"
)

// Consumer reads the event topic as part of a consumer group.
type Consumer struct {
	reader  *kafka.Reader
	handler Handler
	log     *logger.Logger
}

func NewConsumer(brokers []string, topic, groupID string, handler Handler, log *logger.Logger) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 1,
			MaxBytes: 10e6,
		}),
		handler: handler,
		log:     log,
	}
}

// Run blocks until ctx is cancelled. Handler failures are logged and the
// message is committed; notifications are not retried.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			return err
		}

		var e Event
		if err := json.Unmarshal(msg.Value, &e); err != nil {
			c.log.Warnf("skip malformed event at offset %d: %v", msg.Offset, err)
			continue
		}
		if err := c.handler.Handle(ctx, e); err != nil {
			c.log.Errorf(err, "handle %s for %s %d", e.Type, e.RecordType, e.RecordID)
		}
	}
}
