package repository

import (
	"context"
	"encoding/json"
	"sync"

	"communilearn_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ViewedStore 每个用户已查看的动态键集合（形如 "Quiz:7"），只增不删
type ViewedStore interface {
	MarkViewed(ctx context.Context, email string, keys ...string) error
	Viewed(ctx context.Context, email string) (map[string]bool, error)
	// Subscribe 订阅该用户之后的标记事件，ctx 结束时关闭返回的通道
	Subscribe(ctx context.Context, email string) (<-chan ViewedEvent, error)
}

// ViewedEvent 一次标记已读的通知
type ViewedEvent struct {
	Keys []string `json:"keys"`
}

const subscriberBuffer = 16

func viewedKey(email string) string {
	return "viewed:" + email
}

// ViewedChannel 标记已读后发布通知的频道，其他会话据此刷新
func ViewedChannel(email string) string {
	return "viewed-events:" + email
}

type RedisViewedStore struct {
	Redis *redis.Client
}

func NewRedisViewedStore(rdb *redis.Client) *RedisViewedStore {
	return &RedisViewedStore{Redis: rdb}
}

func (s *RedisViewedStore) MarkViewed(ctx context.Context, email string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	members := make([]interface{}, 0, len(keys))
	for _, k := range keys {
		members = append(members, k)
	}
	if err := s.Redis.SAdd(ctx, viewedKey(email), members...).Err(); err != nil {
		return err
	}
	payload, _ := json.Marshal(ViewedEvent{Keys: keys})
	return s.Redis.Publish(ctx, ViewedChannel(email), payload).Err()
}

func (s *RedisViewedStore) Viewed(ctx context.Context, email string) (map[string]bool, error) {
	members, err := s.Redis.SMembers(ctx, viewedKey(email)).Result()
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(members))
	for _, m := range members {
		set[m] = true
	}
	return set, nil
}

func (s *RedisViewedStore) Subscribe(ctx context.Context, email string) (<-chan ViewedEvent, error) {
	pubsub := s.Redis.Subscribe(ctx, ViewedChannel(email))
	// 等待订阅确认，保证返回后发布的事件不会丢失
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, errors.Wrap(err, "subscribe viewed channel")
	}

	out := make(chan ViewedEvent, subscriberBuffer)
	go func() {
		defer close(out)
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev ViewedEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					logger.Log.Error("Viewed event unmarshal error", zap.Error(err))
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// MemoryViewedStore 未启用 redis 时的进程内实现
type MemoryViewedStore struct {
	mu   sync.RWMutex
	sets map[string]map[string]bool
	subs map[string]map[chan ViewedEvent]struct{}
}

func NewMemoryViewedStore() *MemoryViewedStore {
	return &MemoryViewedStore{
		sets: make(map[string]map[string]bool),
		subs: make(map[string]map[chan ViewedEvent]struct{}),
	}
}

func (s *MemoryViewedStore) MarkViewed(_ context.Context, email string, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.sets[email]
	if !ok {
		set = make(map[string]bool)
		s.sets[email] = set
	}
	for _, k := range keys {
		set[k] = true
	}
	if len(keys) == 0 {
		return nil
	}
	ev := ViewedEvent{Keys: append([]string(nil), keys...)}
	for ch := range s.subs[email] {
		// 订阅者跟不上时丢弃，客户端可重新拉取 /recent
		select {
		case ch <- ev:
		default:
			logger.Log.Warn("Viewed subscriber is full, event dropped", zap.String("email", email))
		}
	}
	return nil
}

func (s *MemoryViewedStore) Viewed(_ context.Context, email string) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]bool, len(s.sets[email]))
	for k := range s.sets[email] {
		out[k] = true
	}
	return out, nil
}

func (s *MemoryViewedStore) Subscribe(ctx context.Context, email string) (<-chan ViewedEvent, error) {
	ch := make(chan ViewedEvent, subscriberBuffer)
	s.mu.Lock()
	if s.subs[email] == nil {
		s.subs[email] = make(map[chan ViewedEvent]struct{})
	}
	s.subs[email][ch] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs[email], ch)
		if len(s.subs[email]) == 0 {
			delete(s.subs, email)
		}
		close(ch)
		s.mu.Unlock()
	}()
	return ch, nil
}
