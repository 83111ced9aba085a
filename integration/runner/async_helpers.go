package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/gatekeeper/internal/services/events"
	"github.com/jwebster45206/gatekeeper/pkg/encounter"
	"github.com/redis/go-redis/v9"
)

// EventTimeout is max time to wait for broadcast events to arrive
const EventTimeout = 5 * time.Second

// EventCollector buffers the events broadcast on a session channel.
type EventCollector struct {
	pubsub *redis.PubSub

	mu       sync.Mutex
	received []encounter.Event
	errs     []error
	arrived  chan struct{}
	done     chan struct{}
}

// SubscribeEvents subscribes to sessionID's channel and returns once the
// subscription is confirmed, so nothing published afterwards is missed.
func SubscribeEvents(ctx context.Context, client *redis.Client, sessionID uuid.UUID) (*EventCollector, error) {
	pubsub := client.Subscribe(ctx, events.Channel(sessionID))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to events: %w", err)
	}

	c := &EventCollector{
		pubsub:  pubsub,
		arrived: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go c.loop()
	return c, nil
}

func (c *EventCollector) loop() {
	defer close(c.done)
	for msg := range c.pubsub.Channel() {
		var ev encounter.Event
		err := json.Unmarshal([]byte(msg.Payload), &ev)

		c.mu.Lock()
		if err != nil {
			c.errs = append(c.errs, fmt.Errorf("failed to decode event: %w", err))
		} else {
			c.received = append(c.received, ev)
		}
		c.mu.Unlock()

		select {
		case c.arrived <- struct{}{}:
		default:
		}
	}
}

// WaitFor blocks until at least n events have been received in total.
func (c *EventCollector) WaitFor(ctx context.Context, n int) ([]encounter.Event, error) {
	timeout := time.After(EventTimeout)
	for {
		c.mu.Lock()
		if len(c.errs) > 0 {
			err := c.errs[0]
			c.mu.Unlock()
			return nil, err
		}
		if len(c.received) >= n {
			out := append([]encounter.Event(nil), c.received...)
			c.mu.Unlock()
			return out, nil
		}
		have := len(c.received)
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timeout:
			return nil, fmt.Errorf("timeout waiting for events: have %d, want %d (waited %v)", have, n, EventTimeout)
		case <-c.arrived:
		}
	}
}

func (c *EventCollector) Close() error {
	err := c.pubsub.Close()
	<-c.done
	return err
}
