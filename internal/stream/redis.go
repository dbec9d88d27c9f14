package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mamadbah2/dealroom/internal/config"
	"github.com/mamadbah2/dealroom/internal/domain/models"
)

const channelPrefix = "dealroom:"

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rdb, nil
}

// Broker publishes deal events on Redis pub/sub, one channel per deal.
type Broker struct {
	client *redis.Client
	logger *zap.Logger
}

func NewBroker(client *redis.Client, logger *zap.Logger) *Broker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broker{client: client, logger: logger}
}

// Publish sends event to the subscribers of its deal.
func (b *Broker) Publish(ctx context.Context, event models.DealEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode deal event: %w", err)
	}
	if err := b.client.Publish(ctx, ChannelName(event.DealID), payload).Err(); err != nil {
		return fmt.Errorf("publish deal event: %w", err)
	}
	return nil
}

// Stream is a live feed of one deal's events.
type Stream interface {
	Events() <-chan models.DealEvent
	Close() error
}

// Subscribe attaches to the channel of dealID. The subscription is confirmed
// by Redis before Subscribe returns, so no event published afterwards is missed.
func (b *Broker) Subscribe(ctx context.Context, dealID string) (Stream, error) {
	pubsub := b.client.Subscribe(ctx, ChannelName(dealID))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe to deal %s: %w", dealID, err)
	}

	sub := &Subscription{
		pubsub: pubsub,
		events: make(chan models.DealEvent, 64),
		done:   make(chan struct{}),
	}
	go sub.pump(b.logger.With(zap.String("deal_id", dealID)))
	return sub, nil
}

// Subscription delivers the decoded events of one deal channel.
type Subscription struct {
	pubsub    *redis.PubSub
	events    chan models.DealEvent
	done      chan struct{}
	closeOnce sync.Once
}

// Events is closed once the subscription is closed.
func (s *Subscription) Events() <-chan models.DealEvent {
	return s.events
}

// Close detaches from the channel.
func (s *Subscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.pubsub.Close()
	})
	return err
}

func (s *Subscription) pump(logger *zap.Logger) {
	defer close(s.events)
	for msg := range s.pubsub.Channel() {
		event, err := DecodeEvent(msg.Payload)
		if err != nil {
			logger.Warn("failed to parse deal event", zap.Error(err))
			continue
		}
		select {
		case s.events <- event:
		case <-s.done:
			return
		}
	}
}

// ChannelName is the pub/sub channel of a deal.
func ChannelName(dealID string) string {
	return channelPrefix + dealID
}

// DecodeEvent parses a published payload.
func DecodeEvent(payload string) (models.DealEvent, error) {
	var event models.DealEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return models.DealEvent{}, fmt.Errorf("decode deal event: %w", err)
	}
	if event.DealID == "" || event.Type == "" {
		return models.DealEvent{}, fmt.Errorf("decode deal event: missing type or deal id")
	}
	return event, nil
}
