package sink

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const publishTimeout = 2 * time.Second

// Event is the payload published for every label.
type Event struct {
	Activity  string    `json:"activity"`
	Timestamp time.Time `json:"timestamp"`
	Host      string    `json:"host,omitempty"`
}

// RedisOptions configures the publisher connection.
type RedisOptions struct {
	Address  string
	Password string
	DB       int
	Channel  string
	Host     string // reported in every event
}

// RedisPublisher publishes labels to a Redis pub/sub channel.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	host    string
	now     func() time.Time
}

func NewRedisPublisher(opts RedisOptions) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Address,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return &RedisPublisher{
		client:  client,
		channel: opts.Channel,
		host:    opts.Host,
		now:     time.Now,
	}
}

// Payload encodes the event for label.
func (p *RedisPublisher) Payload(label string) ([]byte, error) {
	return json.Marshal(Event{
		Activity:  label,
		Timestamp: p.now().UTC(),
		Host:      p.host,
	})
}

// Publish is an activity.ErrorCallback.
func (p *RedisPublisher) Publish(label string) error {
	payload, err := p.Payload(label)
	if err != nil {
		return errors.Wrap(err, "failed to encode activity event")
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return errors.Wrapf(err, "failed to publish to %s", p.channel)
	}
	return nil
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
