package notification

import (
	"context"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Hub fans in-app notifications out to open browser streams.
type Hub interface {
	Publish(ctx context.Context, userID uint, payload string) error
	// Subscribe returns a channel of payloads and a func that releases it.
	Subscribe(ctx context.Context, userID uint) (<-chan string, func())
}

func userChannel(userID uint) string {
	return "lgcert:notifications:user:" + strconv.FormatUint(uint64(userID), 10)
}

// RedisHub shares streams across API replicas through pub/sub.
type RedisHub struct {
	rdb *redis.Client
}

func NewRedisHub(rdb *redis.Client) *RedisHub {
	return &RedisHub{rdb: rdb}
}

func (h *RedisHub) Publish(ctx context.Context, userID uint, payload string) error {
	return h.rdb.Publish(ctx, userChannel(userID), payload).Err()
}

func (h *RedisHub) Subscribe(ctx context.Context, userID uint) (<-chan string, func()) {
	sub := h.rdb.Subscribe(ctx, userChannel(userID))
	out := make(chan string, 8)
	done := make(chan struct{})
	go func() {
		defer close(out)
		ch := sub.Channel()
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- msg.Payload:
				case <-done:
					return
				}
			case <-done:
				return
			}
		}
	}()
	var once sync.Once
	return out, func() {
		once.Do(func() {
			close(done)
			_ = sub.Close()
		})
	}
}

// LocalHub serves a single process.
type LocalHub struct {
	mu   sync.Mutex
	subs map[uint]map[chan string]struct{}
}

func NewLocalHub() *LocalHub {
	return &LocalHub{subs: map[uint]map[chan string]struct{}{}}
}

func (h *LocalHub) Publish(_ context.Context, userID uint, payload string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[userID] {
		select {
		case ch <- payload:
		default:
			// slow reader, drop
		}
	}
	return nil
}

func (h *LocalHub) Subscribe(_ context.Context, userID uint) (<-chan string, func()) {
	ch := make(chan string, 8)
	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = map[chan string]struct{}{}
	}
	h.subs[userID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[userID], ch)
			if len(h.subs[userID]) == 0 {
				delete(h.subs, userID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
}
