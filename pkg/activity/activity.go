// Package activity is the durable message-activity pipeline between the
// serving processes and the conversation materializer. Records ride
// Kafka; losing one only delays a ranking update until the next reload.
package activity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/ridgeline-homes/portalchat/pkg/model"
)

// Record is one unit of channel activity.
type Record struct {
	Message model.Message `json:"message"`
}

// Producer writes activity records to the activity topic.
type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

// Publish records a message send. Keyed by channel so one channel's
// activity stays ordered within a partition.
func (p *Producer) Publish(ctx context.Context, msg model.Message) error {
	value, err := json.Marshal(Record{Message: msg})
	if err != nil {
		return fmt.Errorf("activity: marshal record: %w", err)
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.ChannelID),
		Value: value,
		Time:  msg.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("activity: write record: %w", err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// NewReader builds the consumer side for the materializer.
func NewReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3,
		MaxBytes: 10e6,
	})
}
