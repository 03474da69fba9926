package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vsinha/marketsim/pkg/infrastructure/config"
)

const publishTimeout = 2 * time.Second

// StreamWriter is the subset of the redis client the publisher needs
type StreamWriter interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisPublisher mirrors events onto a capped redis stream
type RedisPublisher struct {
	client StreamWriter
	stream string
	maxLen int64
	logger *zap.Logger
}

// NewRedisPublisher creates a publisher writing to stream through client
func NewRedisPublisher(client StreamWriter, stream string, maxLen int64, logger *zap.Logger) *RedisPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisPublisher{
		client: client,
		stream: stream,
		maxLen: maxLen,
		logger: logger,
	}
}

// Handle appends the event to the stream
func (p *RedisPublisher) Handle(event Event) error {
	payload, err := json.Marshal(event.Data())
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event.Type(), err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	args := &redis.XAddArgs{
		Stream: p.stream,
		Approx: true,
		Values: map[string]interface{}{
			"type":    event.Type(),
			"stream":  event.StreamID(),
			"version": event.Version(),
			"at":      event.Timestamp().Format(time.RFC3339Nano),
			"data":    string(payload),
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
	}

	id, err := p.client.XAdd(ctx, args).Result()
	if err != nil {
		return fmt.Errorf("redis xadd %s failed: %w", p.stream, err)
	}
	p.logger.Debug("event published",
		zap.String("event_type", event.Type()),
		zap.String("redis_id", id))
	return nil
}

// CanHandle accepts every event type
func (p *RedisPublisher) CanHandle(string) bool {
	return true
}

// NewRedisClient connects to redis and checks the connection
func NewRedisClient(cfg config.EventsConfig) (*redis.Client, error) {
	opts, err := buildRedisOptions(cfg)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func buildRedisOptions(cfg config.EventsConfig) (*redis.Options, error) {
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		return opt, nil
	}

	return &redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, nil
}
