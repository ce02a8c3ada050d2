package analytics

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/angelmondragon/gemline-backend/pkg/enums"
)

// CooldownStore remembers when each metric was last recomputed.
type CooldownStore interface {
	// Remaining returns how long until metricType may be recomputed; zero means now.
	Remaining(ctx context.Context, metricType enums.MetricType) (time.Duration, error)
	// Mark starts a new cooldown window for metricType.
	Mark(ctx context.Context, metricType enums.MetricType) error
}

// MemoryCooldownStore keeps cooldowns in process memory. Every instance has
// its own clock, and a restart resets all windows.
type MemoryCooldownStore struct {
	mu     sync.Mutex
	last   map[enums.MetricType]time.Time
	clock  clockwork.Clock
	period time.Duration
}

func NewMemoryCooldownStore(clock clockwork.Clock, period time.Duration) *MemoryCooldownStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if period <= 0 {
		period = CooldownPeriod
	}
	return &MemoryCooldownStore{
		last:   make(map[enums.MetricType]time.Time),
		clock:  clock,
		period: period,
	}
}

func (m *MemoryCooldownStore) Remaining(_ context.Context, metricType enums.MetricType) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	last, ok := m.last[metricType]
	if !ok {
		return 0, nil
	}
	remaining := m.period - m.clock.Since(last)
	if remaining < 0 {
		return 0, nil
	}
	return remaining, nil
}

func (m *MemoryCooldownStore) Mark(_ context.Context, metricType enums.MetricType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last[metricType] = m.clock.Now()
	return nil
}

type cooldownRedis interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	PTTL(ctx context.Context, key string) (time.Duration, error)
	CooldownKey(metricType string) string
}

// RedisCooldownStore shares cooldown windows between instances: each metric
// owns a key that expires when its window closes.
type RedisCooldownStore struct {
	client cooldownRedis
	clock  clockwork.Clock
	period time.Duration
}

func NewRedisCooldownStore(client cooldownRedis, clock clockwork.Clock, period time.Duration) (*RedisCooldownStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if period <= 0 {
		period = CooldownPeriod
	}
	return &RedisCooldownStore{client: client, clock: clock, period: period}, nil
}

func (r *RedisCooldownStore) Remaining(ctx context.Context, metricType enums.MetricType) (time.Duration, error) {
	ttl, err := r.client.PTTL(ctx, r.client.CooldownKey(string(metricType)))
	if err != nil {
		return 0, fmt.Errorf("read cooldown %s: %w", metricType, err)
	}
	if ttl <= 0 {
		return 0, nil
	}
	return ttl, nil
}

func (r *RedisCooldownStore) Mark(ctx context.Context, metricType enums.MetricType) error {
	stamp := strconv.FormatInt(r.clock.Now().UnixMilli(), 10)
	if err := r.client.Set(ctx, r.client.CooldownKey(string(metricType)), stamp, r.period); err != nil {
		return fmt.Errorf("mark cooldown %s: %w", metricType, err)
	}
	return nil
}
