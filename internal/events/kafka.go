// README: Kafka publisher (sarama SyncProducer) for lifecycle events.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"
)

type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	log      logrus.FieldLogger
}

func NewKafkaPublisher(brokers []string, topic string, log logrus.FieldLogger) (*KafkaPublisher, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Retry.Backoff = 100 * time.Millisecond
	cfg.Producer.Return.Successes = true
	cfg.Producer.Compression = sarama.CompressionSnappy

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	log.WithField("brokers", brokers).Info("kafka producer ready")
	return NewKafkaPublisherWithProducer(producer, topic, log), nil
}

func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topic string, log logrus.FieldLogger) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic, log: log}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(e.Key),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(e.Type)},
			{Key: []byte("timestamp"), Value: []byte(e.Timestamp.Format(time.RFC3339))},
		},
	}
	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("send to topic %s: %w", p.topic, err)
	}
	p.log.WithFields(logrus.Fields{
		"topic":      p.topic,
		"partition":  partition,
		"offset":     offset,
		"event_type": e.Type,
		"event_id":   e.ID,
	}).Debug("event published")
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
