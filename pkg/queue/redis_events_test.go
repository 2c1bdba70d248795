package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"shelfmark/pkg/domain"
)

func TestRedisEventQueuePublishAndConsume(t *testing.T) {
	redisSrv := miniredis.RunT(t)
	q, err := NewRedisEventQueue(RedisEventQueueConfig{
		Addr:  redisSrv.Addr(),
		Block: 100 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("new queue: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan domain.Event, 1)
	q.Start(ctx, 1, func(_ context.Context, evt domain.Event) error {
		received <- evt
		return nil
	})
	// The consumer group reads from "$"; give the loop a moment to attach
	// before publishing.
	time.Sleep(200 * time.Millisecond)

	evt := domain.NewEvent(domain.EventReviewCreated, map[string]string{"reviewId": "r1"})
	if err := q.Publish(ctx, evt); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case got := <-received:
		if got.Type != domain.EventReviewCreated {
			t.Fatalf("unexpected event type: %q", got.Type)
		}
		raw, ok := got.Data.(json.RawMessage)
		if !ok {
			t.Fatalf("expected raw JSON data, got %T", got.Data)
		}
		var data map[string]string
		if err := json.Unmarshal(raw, &data); err != nil {
			t.Fatalf("unmarshal data: %v", err)
		}
		if data["reviewId"] != "r1" {
			t.Fatalf("unexpected data: %v", data)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestRedisEventQueueRequiresAddr(t *testing.T) {
	if _, err := NewRedisEventQueue(RedisEventQueueConfig{}); err == nil {
		t.Fatal("expected error for missing addr")
	}
}
