package broadcast

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"

	"pkt.systems/parley/schema"
)

// RedisChannel bridges the broadcast medium over Redis pub/sub so tabs
// in different processes share one election domain. Redis delivers
// published messages back to the publishing subscriber; the self tab id
// filters those out to keep BroadcastChannel semantics.
type RedisChannel struct {
	client  *redis.Client
	name    string
	self    schema.TabID
	pubsub  *redis.PubSub
	msgs    chan schema.Envelope
	closeMu sync.Mutex
	closed  bool
	done    chan struct{}
}

// NewRedisChannel subscribes to the named channel and starts pumping
// envelopes. self is the local tab id used to drop loopback messages.
func NewRedisChannel(ctx context.Context, client *redis.Client, name string, self schema.TabID) (*RedisChannel, error) {
	pubsub := client.Subscribe(ctx, name)
	// Force the subscription before first publish.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}
	c := &RedisChannel{
		client: client,
		name:   name,
		self:   self,
		pubsub: pubsub,
		msgs:   make(chan schema.Envelope, 64),
		done:   make(chan struct{}),
	}
	go c.pump()
	return c, nil
}

func (c *RedisChannel) pump() {
	defer close(c.msgs)
	in := c.pubsub.Channel()
	for {
		select {
		case <-c.done:
			return
		case msg, ok := <-in:
			if !ok {
				return
			}
			var env schema.Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				// Foreign traffic on the channel is ignored.
				continue
			}
			if env.TabID == c.self {
				continue
			}
			select {
			case c.msgs <- env:
			case <-c.done:
				return
			}
		}
	}
}

// Publish sends an envelope to every subscriber of the named channel.
func (c *RedisChannel) Publish(ctx context.Context, env schema.Envelope) error {
	c.closeMu.Lock()
	closed := c.closed
	c.closeMu.Unlock()
	if closed {
		return schema.ErrChannelClosed
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, c.name, payload).Err()
}

// Messages yields envelopes published by other tabs.
func (c *RedisChannel) Messages() <-chan schema.Envelope {
	return c.msgs
}

// Close unsubscribes and stops the pump.
func (c *RedisChannel) Close() error {
	c.closeMu.Lock()
	if c.closed {
		c.closeMu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	c.closeMu.Unlock()
	return c.pubsub.Close()
}
