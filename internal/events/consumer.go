package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kprom"
	"go.uber.org/zap"
)

// retryBackoff is the pause before a failed batch is fetched again.
const retryBackoff = 2 * time.Second

type ConsumerConfig struct {
	Brokers        []string
	Name           string
	Topic          string
	RecordsPerPoll int
}

// RecordProcessor handles one polled batch. A returned error leaves the batch
// uncommitted so it is fetched again.
type RecordProcessor interface {
	ProcessRecords(ctx context.Context, records []Record) error
}

type Consumer struct {
	client    *kgo.Client
	config    ConsumerConfig
	processor RecordProcessor
	logger    *zap.Logger
}

// NewConsumer creates a group consumer with manual commits. Call Poll to start consuming.
func NewConsumer(conf ConsumerConfig, processor RecordProcessor, metrics *kprom.Metrics, logger *zap.Logger) (*Consumer, error) {
	opts := []kgo.Opt{
		kgo.SeedBrokers(conf.Brokers...),
		kgo.ConsumerGroup(conf.Name),
		kgo.ConsumeTopics(conf.Topic),
		kgo.WithHooks(metrics),
		kgo.DisableAutoCommit(),
		kgo.BlockRebalanceOnPoll(),
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	return &Consumer{client: client, config: conf, processor: processor, logger: logger}, nil
}

// Poll consumes until ctx is cancelled or the client is closed.
func (c *Consumer) Poll(ctx context.Context) error {
	defer c.client.Close()

	for {
		if ctx.Err() != nil {
			c.logger.Info("status consumer stopped", zap.String("consumer", c.config.Name))
			return nil
		}

		fetches := c.client.PollRecords(ctx, c.config.RecordsPerPoll)
		if fetches.IsClientClosed() {
			return errors.New("kafka client closed")
		}
		if errors.Is(fetches.Err0(), context.Canceled) {
			return nil
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.Warn("fetch error",
				zap.String("topic", topic),
				zap.Int32("partition", partition),
				zap.Error(err))
		})

		polled := fetches.Records()
		if len(polled) == 0 {
			c.client.AllowRebalance()
			continue
		}
		records := make([]Record, len(polled))
		for i, r := range polled {
			records[i] = Record{Key: r.Key, Value: r.Value, Topic: r.Topic}
		}

		if err := c.processor.ProcessRecords(ctx, records); err != nil {
			c.logger.Error("failed to process records, rewinding", zap.Int("records", len(polled)), zap.Error(err))
			// The client never refetches delivered records on its own; without the rewind the
			// next commit would move past this batch.
			c.client.SetOffsets(rewindOffsets(polled))
			c.client.AllowRebalance()
			select {
			case <-ctx.Done():
			case <-time.After(retryBackoff):
			}
			continue
		}

		if err := c.client.CommitRecords(ctx, polled...); err != nil {
			c.logger.Error("failed to commit records", zap.Error(err))
		}
		c.client.AllowRebalance()
	}
}

// rewindOffsets returns the first offset of records on each partition, so consumption can
// resume from the start of a failed batch.
func rewindOffsets(records []*kgo.Record) map[string]map[int32]kgo.EpochOffset {
	offsets := make(map[string]map[int32]kgo.EpochOffset)
	for _, r := range records {
		partitions, ok := offsets[r.Topic]
		if !ok {
			partitions = make(map[int32]kgo.EpochOffset)
			offsets[r.Topic] = partitions
		}
		if cur, seen := partitions[r.Partition]; seen && cur.Offset <= r.Offset {
			continue
		}
		partitions[r.Partition] = kgo.EpochOffset{Epoch: r.LeaderEpoch, Offset: r.Offset}
	}
	return offsets
}
