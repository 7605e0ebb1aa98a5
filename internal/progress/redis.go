package progress

import (
	"context"

	"github.com/redis/go-redis/v9"
)

type RedisBroker struct {
	rdb *redis.Client
}

func NewRedisBroker(rdb *redis.Client) *RedisBroker {
	return &RedisBroker{rdb: rdb}
}

func (b *RedisBroker) Publish(ctx context.Context, ev Event) error {
	payload, err := encode(ev)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, Channel(ev.RunID), payload).Err()
}

func (b *RedisBroker) Subscribe(ctx context.Context, runID string) (<-chan []byte, func(), error) {
	ps := b.rdb.Subscribe(ctx, Channel(runID))
	// wait for the subscription confirmation so no event published after
	// Subscribe returns is missed
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, err
	}

	out := make(chan []byte, 16)
	go func() {
		defer close(out)
		for m := range ps.Channel() {
			select {
			case out <- []byte(m.Payload):
			default: // slow listener, drop
			}
		}
	}()
	return out, func() { _ = ps.Close() }, nil
}
