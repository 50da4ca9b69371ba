package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// The cache is process-local, so an epoch bump on one worker is invisible
// to the others. EpochSync closes that gap: the authoritative epoch lives
// in a shared Redis counter, every bump increments it and announces the
// new value on a Pub/Sub channel, and all subscribed workers raise their
// local epoch to it. Without a configured Redis address the deployment
// must be single-process for the invalidation guarantee to hold across
// requests.

// EpochEvent is the wire format of an invalidation announcement. Epoch is
// the value of the shared counter after the bump.
type EpochEvent struct {
	InstanceID string `json:"instance_id"`
	Epoch      int64  `json:"epoch"`
}

// EpochSync keeps cache epochs aligned across processes via Redis.
type EpochSync struct {
	client     *redis.Client
	channel    string
	counterKey string
	instanceID string
	cache      *Cache

	pubsub *redis.PubSub
	done   chan struct{}
	wg     sync.WaitGroup

	closeOnce sync.Once
}

// NewEpochSync connects to Redis and returns a synchronizer for the cache.
func NewEpochSync(addr, channel string, cache *Cache) (*EpochSync, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "failed to connect to redis")
	}

	if channel == "" {
		channel = "bloggy:cache:epoch"
	}

	return &EpochSync{
		client:     client,
		channel:    channel,
		counterKey: channel + ":counter",
		instanceID: uuid.NewString(),
		cache:      cache,
		done:       make(chan struct{}),
	}, nil
}

// Start adopts the shared epoch, subscribes to the announcement channel
// and applies remote bumps. Adopting the counter first means a freshly
// restarted worker does not begin below its long-lived peers.
func (s *EpochSync) Start(ctx context.Context) error {
	shared, err := s.client.Get(ctx, s.counterKey).Int64()
	if err != nil && err != redis.Nil {
		return errors.Wrap(err, "failed to read shared epoch")
	}
	if err == nil {
		s.cache.AdvanceTo(shared)
	}

	s.pubsub = s.client.Subscribe(ctx, s.channel)

	// Force the subscription to be established before returning so no
	// bump published after Start is missed.
	if _, err := s.pubsub.Receive(ctx); err != nil {
		return errors.Wrap(err, "failed to subscribe to epoch channel")
	}

	s.wg.Add(1)
	go s.listen()
	return nil
}

// Broadcast increments the shared epoch and announces the new value to
// all workers. A failure here must fail the surrounding mutation,
// otherwise other workers could keep serving stale cached reads.
func (s *EpochSync) Broadcast(ctx context.Context) error {
	shared, err := s.client.Incr(ctx, s.counterKey).Result()
	if err != nil {
		return errors.Wrap(err, "failed to bump shared epoch")
	}
	s.cache.AdvanceTo(shared)

	data, err := json.Marshal(EpochEvent{InstanceID: s.instanceID, Epoch: shared})
	if err != nil {
		return err
	}
	if err := s.client.Publish(ctx, s.channel, string(data)).Err(); err != nil {
		return errors.Wrap(err, "failed to publish epoch bump")
	}
	return nil
}

// Close stops the listener and closes the Redis connection.
func (s *EpochSync) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		if s.pubsub != nil {
			err = s.pubsub.Close()
		}
		s.wg.Wait()
		if cerr := s.client.Close(); err == nil {
			err = cerr
		}
	})
	return err
}

func (s *EpochSync) listen() {
	defer s.wg.Done()

	ch := s.pubsub.Channel()
	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var event EpochEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				slog.Warn("dropping malformed epoch event", "payload", msg.Payload, "error", err)
				continue
			}
			s.applyEvent(event)
		}
	}
}

// applyEvent raises the local epoch to a peer's announced value. The
// shared counter is monotonic, but a peer running against a flushed or
// replaced Redis can still announce a value below the local epoch; the
// announcement means content changed, so invalidate outright rather than
// ignore it.
func (s *EpochSync) applyEvent(event EpochEvent) {
	if event.InstanceID == s.instanceID {
		return
	}
	if !s.cache.AdvanceTo(event.Epoch) {
		s.cache.InvalidateAll()
	}
}
