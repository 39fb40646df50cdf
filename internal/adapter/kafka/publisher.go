// Package kafka publishes processed notices to a topic for downstream
// consumers. The publisher is optional; the service runs without it
// when no brokers are configured.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/outage-notice-etl/internal/domain"
)

// Publisher produces one message per processed notice.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the notices topic.
func NewPublisher(brokers []string, topic string, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// Publish serializes and writes all notices in a single WriteMessages
// call. Messages are keyed by announcement URL so updates for the same
// notice land on the same partition.
func (p *Publisher) Publish(ctx context.Context, notices []domain.NoticeResult) error {
	if len(notices) == 0 {
		return nil
	}

	msgs := make([]kafkago.Message, len(notices))
	for i := range notices {
		msg, err := serializeToMessage(notices[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish notices: %w", err)
	}
	p.logger.Info("published notices", "count", len(msgs))
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

func serializeToMessage(notice domain.NoticeResult) (kafkago.Message, error) {
	data, err := json.Marshal(notice)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize notice %s: %w", notice.URL, err)
	}

	images := 0
	schedules := 0
	for _, img := range notice.ProcessedImages {
		images++
		schedules += len(img.Structured)
	}

	return kafkago.Message{
		Key:   []byte(notice.URL),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "publish_date", Value: []byte(notice.PublishDate.Format(time.RFC3339))},
			{Key: "image_count", Value: []byte(fmt.Sprintf("%d", images))},
			{Key: "schedule_count", Value: []byte(fmt.Sprintf("%d", schedules))},
		},
	}, nil
}
