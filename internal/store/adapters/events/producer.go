// Package events publishes order events to Kafka.
package events

import (
	"context"
	"fmt"

	"github.com/Shopify/sarama"

	"github.com/jcmexdev/storefront/internal/store/ports"
)

// Producer is a synchronous Kafka producer for one topic.
type Producer struct {
	topic string
	conn  sarama.SyncProducer
}

// NewProducer connects to brokers and waits for every in-sync replica to
// acknowledge each batch.
func NewProducer(brokers []string, topic string) (*Producer, error) {
	conf := sarama.NewConfig()
	conf.Producer.Return.Successes = true
	conf.Producer.Return.Errors = true
	conf.Producer.RequiredAcks = sarama.WaitForAll
	conf.Producer.Idempotent = true
	conf.Net.MaxOpenRequests = 1
	conf.Version = sarama.V2_1_0_0

	conn, err := sarama.NewSyncProducer(brokers, conf)
	if err != nil {
		return nil, fmt.Errorf("events: kafka producer: %w", err)
	}
	return NewProducerFromSync(conn, topic), nil
}

func NewProducerFromSync(conn sarama.SyncProducer, topic string) *Producer {
	return &Producer{topic: topic, conn: conn}
}

var _ ports.Publisher = (*Producer)(nil)

func (p *Producer) Push(ctx context.Context, messages []ports.Message) error {
	if len(messages) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.conn.SendMessages(toKafkaMessages(messages, p.topic)); err != nil {
		return fmt.Errorf("events: push %d messages to %s: %w", len(messages), p.topic, err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.conn.Close()
}

func toKafkaMessages(messages []ports.Message, topic string) []*sarama.ProducerMessage {
	res := make([]*sarama.ProducerMessage, 0, len(messages))
	for _, m := range messages {
		res = append(res, &sarama.ProducerMessage{
			Topic: topic,
			Key:   sarama.StringEncoder(m.Key),
			Value: sarama.ByteEncoder(m.Value),
		})
	}
	return res
}
