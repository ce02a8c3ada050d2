package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/gemline-backend/pkg/enums"
	"github.com/angelmondragon/gemline-backend/pkg/logger"
)

func TestMemoryCooldownStore(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testNow)
	store := NewMemoryCooldownStore(clock, time.Minute)
	ctx := context.Background()

	remaining, err := store.Remaining(ctx, enums.MetricTypeNetRevenue)
	require.NoError(t, err)
	assert.Zero(t, remaining)

	require.NoError(t, store.Mark(ctx, enums.MetricTypeNetRevenue))
	clock.Advance(20 * time.Second)
	remaining, err = store.Remaining(ctx, enums.MetricTypeNetRevenue)
	require.NoError(t, err)
	assert.Equal(t, 40*time.Second, remaining)

	clock.Advance(41 * time.Second)
	remaining, err = store.Remaining(ctx, enums.MetricTypeNetRevenue)
	require.NoError(t, err)
	assert.Zero(t, remaining)
}

type fakeCooldownRedis struct {
	values map[string]string
	ttls   map[string]time.Duration
	err    error
}

func newFakeCooldownRedis() *fakeCooldownRedis {
	return &fakeCooldownRedis{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeCooldownRedis) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	if f.err != nil {
		return f.err
	}
	f.values[key] = value.(string)
	f.ttls[key] = ttl
	return nil
}

func (f *fakeCooldownRedis) PTTL(_ context.Context, key string) (time.Duration, error) {
	if f.err != nil {
		return 0, f.err
	}
	ttl, ok := f.ttls[key]
	if !ok {
		return -2 * time.Millisecond, nil
	}
	return ttl, nil
}

func (f *fakeCooldownRedis) CooldownKey(metricType string) string {
	return "gemline:analytics_cooldown:" + metricType
}

func TestRedisCooldownStore(t *testing.T) {
	client := newFakeCooldownRedis()
	clock := clockwork.NewFakeClockAt(testNow)
	store, err := NewRedisCooldownStore(client, clock, 0)
	require.NoError(t, err)
	ctx := context.Background()

	remaining, err := store.Remaining(ctx, enums.MetricTypeTopProducts)
	require.NoError(t, err)
	assert.Zero(t, remaining, "missing key means no cooldown")

	require.NoError(t, store.Mark(ctx, enums.MetricTypeTopProducts))
	key := "gemline:analytics_cooldown:top_products"
	assert.Equal(t, CooldownPeriod, client.ttls[key])
	assert.Equal(t, "1773576000000", client.values[key])

	remaining, err = store.Remaining(ctx, enums.MetricTypeTopProducts)
	require.NoError(t, err)
	assert.Equal(t, CooldownPeriod, remaining)
}

func TestRedisCooldownStoreErrors(t *testing.T) {
	_, err := NewRedisCooldownStore(nil, nil, 0)
	require.Error(t, err)

	client := newFakeCooldownRedis()
	client.err = errors.New("redis down")
	store, err := NewRedisCooldownStore(client, nil, time.Minute)
	require.NoError(t, err)

	_, err = store.Remaining(context.Background(), enums.MetricTypeNetRevenue)
	require.Error(t, err)
	require.Error(t, store.Mark(context.Background(), enums.MetricTypeNetRevenue))
}

func TestServiceUsesSharedCooldownStore(t *testing.T) {
	conn := openTestDB(t)
	clock := clockwork.NewFakeClockAt(testNow)
	client := newFakeCooldownRedis()
	cooldowns, err := NewRedisCooldownStore(client, clock, CooldownPeriod)
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{Store: NewRepository(conn), Logger: logger.Nop(), Clock: clock, Cooldowns: cooldowns})
	require.NoError(t, err)
	other, err := NewService(ServiceParams{Store: NewRepository(conn), Logger: logger.Nop(), Clock: clock, Cooldowns: cooldowns})
	require.NoError(t, err)

	res, err := svc.RefreshAnalytics(context.Background(), enums.MetricTypeNetRevenue, "")
	require.NoError(t, err)
	require.True(t, res.Success)

	rejected, err := other.RefreshAnalytics(context.Background(), enums.MetricTypeNetRevenue, "")
	require.NoError(t, err)
	assert.True(t, rejected.CooldownRejected, "second instance sees the shared window")
}
