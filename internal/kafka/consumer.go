package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/IBM/sarama"
	"github.com/gaming-library/internal/config"
	"github.com/gaming-library/internal/domain"
)

// ActivitySink receives activity events read from the topic
type ActivitySink interface {
	BroadcastActivity(event domain.ActivityEvent)
}

// Consumer relays activity events from the topic to a local sink. It is its
// own sarama.ConsumerGroupHandler.
type Consumer struct {
	group  sarama.ConsumerGroup
	topic  string
	sink   ActivitySink
	logger *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewConsumer joins cfg.GroupID. Each game-service instance must use a
// distinct group so that every instance sees every event.
func NewConsumer(cfg *config.KafkaConfig, sink ActivitySink, logger *slog.Logger) (*Consumer, error) {
	sc := sarama.NewConfig()
	sc.Version = sarama.V3_0_0_0
	sc.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	sc.Consumer.Offsets.Initial = sarama.OffsetNewest
	sc.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, sc)
	if err != nil {
		return nil, err
	}

	return &Consumer{
		group:  group,
		topic:  cfg.Topic,
		sink:   sink,
		logger: logger.With("topic", cfg.Topic, "group_id", cfg.GroupID),
	}, nil
}

// Start joins the group in the background. Sessions are re-joined after
// every rebalance until Stop.
func (c *Consumer) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	c.logger.Info("activity consumer starting")

	c.wg.Add(2)
	go c.consumeLoop(ctx)
	go c.errorLoop(ctx)
}

func (c *Consumer) consumeLoop(ctx context.Context) {
	defer c.wg.Done()
	for ctx.Err() == nil {
		err := c.group.Consume(ctx, []string{c.topic}, c)
		switch {
		case errors.Is(err, sarama.ErrClosedConsumerGroup):
			return
		case err != nil:
			c.logger.Error("consume session ended", "error", err)
		}
	}
}

func (c *Consumer) errorLoop(ctx context.Context) {
	defer c.wg.Done()
	errs := c.group.Errors()
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errs:
			if !ok {
				return
			}
			c.logger.Error("consumer group error", "error", err)
		}
	}
}

// Stop leaves the group and waits for the background loops
func (c *Consumer) Stop() error {
	c.logger.Info("activity consumer stopping")
	if c.cancel != nil {
		c.cancel()
	}
	err := c.group.Close()
	c.wg.Wait()
	return err
}

// Setup runs when a session starts
func (c *Consumer) Setup(s sarama.ConsumerGroupSession) error {
	c.logger.Debug("consumer session assigned", "claims", s.Claims())
	return nil
}

// Cleanup runs when a session ends
func (c *Consumer) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim relays one partition's records and marks each as processed
func (c *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	msgs := claim.Messages()
	for {
		select {
		case <-session.Context().Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			c.handleMessage(msg)
			session.MarkMessage(msg, "")
		}
	}
}

// handleMessage forwards a decoded event. Records that do not decode, or
// carry no owner or type, are skipped.
func (c *Consumer) handleMessage(msg *sarama.ConsumerMessage) {
	var ev domain.ActivityEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		c.logger.Warn("skipping undecodable record", "error", err, "partition", msg.Partition, "offset", msg.Offset)
		return
	}
	if ev.UserID == 0 || ev.Type == "" {
		c.logger.Warn("skipping incomplete activity event", "partition", msg.Partition, "offset", msg.Offset)
		return
	}
	c.sink.BroadcastActivity(ev)
}
