package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kprom"
	"go.uber.org/zap"
)

// Publisher announces new uploads.
type Publisher interface {
	PublishUploaded(ctx context.Context, ev DocumentUploaded) error
	Close()
}

// NopPublisher is used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) PublishUploaded(context.Context, DocumentUploaded) error { return nil }
func (NopPublisher) Close()                                                 {}

type ProducerConfig struct {
	Brokers []string
	Topic   string
}

// KafkaPublisher writes DocumentUploaded events keyed by storage key, so all events for
// one document land on the same partition.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
	logger *zap.Logger
}

func NewKafkaPublisher(conf ProducerConfig, metrics *kprom.Metrics, logger *zap.Logger) (*KafkaPublisher, error) {
	opts := []kgo.Opt{
		kgo.SeedBrokers(conf.Brokers...),
		kgo.DefaultProduceTopic(conf.Topic),
		kgo.WithHooks(metrics),
	}
	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return &KafkaPublisher{client: client, topic: conf.Topic, logger: logger}, nil
}

func (p *KafkaPublisher) PublishUploaded(ctx context.Context, ev DocumentUploaded) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal upload event: %w", err)
	}
	rec := &kgo.Record{Topic: p.topic, Key: []byte(ev.StorageKey.String()), Value: value}
	if err := p.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("publish upload event: %w", err)
	}
	p.logger.Debug("published upload event",
		zap.String("topic", p.topic),
		zap.String("storage_key", ev.StorageKey.String()))
	return nil
}

func (p *KafkaPublisher) Close() {
	p.client.Close()
}
