// Package queue hands domain events off to an out-of-band consumer via a
// Redis stream, so webhook delivery never blocks the request that produced
// the event.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"shelfmark/pkg/domain"
)

// RedisEventQueue publishes domain events onto a Redis stream and consumes
// them with a consumer group.
type RedisEventQueue struct {
	client       *redis.Client
	stream       string
	group        string
	consumerBase string
	block        time.Duration
	claimIdle    time.Duration
	maxLen       int64
	readCount    int64
	claimCount   int64
	once         sync.Once
}

// RedisEventQueueConfig configures the queue; zero values get defaults.
type RedisEventQueueConfig struct {
	Addr       string
	Password   string
	Stream     string
	Group      string
	Consumer   string
	Block      time.Duration
	ClaimIdle  time.Duration
	MaxLen     int64
	ReadCount  int64
	ClaimCount int64
}

// NewRedisEventQueue validates config and connects the client.
func NewRedisEventQueue(cfg RedisEventQueueConfig) (*RedisEventQueue, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, errors.New("redis addr required")
	}
	stream := strings.TrimSpace(cfg.Stream)
	if stream == "" {
		stream = "shelfmark:events"
	}
	group := strings.TrimSpace(cfg.Group)
	if group == "" {
		group = "webhook-dispatch"
	}
	consumer := strings.TrimSpace(cfg.Consumer)
	if consumer == "" {
		consumer = domain.NewID()
	}
	block := cfg.Block
	if block <= 0 {
		block = 5 * time.Second
	}
	claimIdle := cfg.ClaimIdle
	if claimIdle <= 0 {
		claimIdle = 30 * time.Second
	}
	maxLen := cfg.MaxLen
	if maxLen <= 0 {
		maxLen = 10000
	}
	readCount := cfg.ReadCount
	if readCount <= 0 {
		readCount = 10
	}
	claimCount := cfg.ClaimCount
	if claimCount <= 0 {
		claimCount = 10
	}
	return &RedisEventQueue{
		client:       redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Password}),
		stream:       stream,
		group:        group,
		consumerBase: consumer,
		block:        block,
		claimIdle:    claimIdle,
		maxLen:       maxLen,
		readCount:    readCount,
		claimCount:   claimCount,
	}, nil
}

// Publish appends the event to the stream. Data is stored as JSON so the
// consumer can forward the exact snapshot.
func (q *RedisEventQueue) Publish(ctx context.Context, evt domain.Event) error {
	data, err := json.Marshal(evt.Data)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}
	return q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		MaxLen: q.maxLen,
		Approx: true,
		Values: map[string]any{
			"event_type": evt.Type,
			"timestamp":  evt.Timestamp.UTC().Format(time.RFC3339Nano),
			"data":       string(data),
		},
	}).Err()
}

// Start launches consumer goroutines that feed decoded events to the
// handler. Handler errors are not retried here; delivery outcomes are the
// dispatcher's own record.
func (q *RedisEventQueue) Start(ctx context.Context, concurrency int, handler func(context.Context, domain.Event) error) {
	if concurrency <= 0 {
		concurrency = 1
	}
	q.ensureGroup(ctx)
	for i := 0; i < concurrency; i++ {
		consumer := fmt.Sprintf("%s-%d", q.consumerBase, i)
		go q.consumeLoop(ctx, consumer, handler)
	}
}

func (q *RedisEventQueue) ensureGroup(ctx context.Context) {
	q.once.Do(func() {
		// BUSYGROUP means the group already exists
		err := q.client.XGroupCreateMkStream(ctx, q.stream, q.group, "$").Err()
		if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
			slog.Warn("create consumer group", "stream", q.stream, "error", err)
		}
	})
}

func (q *RedisEventQueue) consumeLoop(ctx context.Context, consumer string, handler func(context.Context, domain.Event) error) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if msgs, err := q.claimPending(ctx, consumer); err == nil {
			for _, msg := range msgs {
				q.handleMessage(ctx, msg, handler)
			}
		}

		streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    q.group,
			Consumer: consumer,
			Streams:  []string{q.stream, ">"},
			Count:    q.readCount,
			Block:    q.block,
		}).Result()
		if err != nil {
			continue
		}
		for _, stream := range streams {
			for _, msg := range stream.Messages {
				q.handleMessage(ctx, msg, handler)
			}
		}
	}
}

func (q *RedisEventQueue) claimPending(ctx context.Context, consumer string) ([]redis.XMessage, error) {
	res, _, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   q.stream,
		Group:    q.group,
		Consumer: consumer,
		MinIdle:  q.claimIdle,
		Start:    "0-0",
		Count:    q.claimCount,
	}).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (q *RedisEventQueue) handleMessage(ctx context.Context, msg redis.XMessage, handler func(context.Context, domain.Event) error) {
	evt, ok := decodeEvent(msg)
	if ok {
		_ = handler(ctx, evt)
	}
	q.ackAndDel(ctx, msg.ID)
}

func (q *RedisEventQueue) ackAndDel(ctx context.Context, msgID string) {
	_, _ = q.client.XAck(ctx, q.stream, q.group, msgID).Result()
	_, _ = q.client.XDel(ctx, q.stream, msgID).Result()
}

func decodeEvent(msg redis.XMessage) (domain.Event, bool) {
	eventType, _ := msg.Values["event_type"].(string)
	if eventType == "" {
		return domain.Event{}, false
	}
	evt := domain.Event{Type: eventType, Timestamp: time.Now().UTC()}
	if raw, _ := msg.Values["timestamp"].(string); raw != "" {
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			evt.Timestamp = t
		}
	}
	if raw, _ := msg.Values["data"].(string); raw != "" {
		evt.Data = json.RawMessage(raw)
	}
	return evt, true
}
