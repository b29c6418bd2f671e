package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Symbol string    `json:"symbol"`
	Prices []float64 `json:"prices"`
}

func TestMemoryCache_RoundTripsStructs(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	in := payload{Symbol: "AAPL", Prices: []float64{1, 2.5}}
	require.NoError(t, mc.Set(ctx, "k", in, time.Minute))

	var out payload
	require.NoError(t, mc.Get(ctx, "k", &out))
	assert.Equal(t, in, out)

	ok, err := mc.Exists(ctx, "missing", "k")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, mc.Delete(ctx, "k"))
	assert.ErrorIs(t, mc.Get(ctx, "k", &out), ErrCacheMiss)
}

func TestMemoryCache_Expiry(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	now := time.Now()
	mc.now = func() time.Time { return now }
	require.NoError(t, mc.Set(ctx, "k", "v", time.Second))

	var s string
	require.NoError(t, mc.Get(ctx, "k", &s))
	assert.Equal(t, "v", s)

	now = now.Add(2 * time.Second)
	assert.ErrorIs(t, mc.Get(ctx, "k", &s), ErrCacheMiss)
	assert.Equal(t, 0, mc.Len())
}

func TestMemoryCache_CleanupSweepsExpired(t *testing.T) {
	mc := NewMemoryCache(WithMemoryCleanup(5 * time.Millisecond))
	defer mc.Close()

	require.NoError(t, mc.Set(context.Background(), "k", "v", 20*time.Millisecond))
	require.Equal(t, 1, mc.Len())
	assert.Eventually(t, func() bool { return mc.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()
	ctx := context.Background()

	clock := time.Now()
	mc.now = func() time.Time { clock = clock.Add(time.Millisecond); return clock }

	require.NoError(t, mc.Set(ctx, "a", 1, time.Minute))
	require.NoError(t, mc.Set(ctx, "b", 2, time.Minute))
	var v int
	require.NoError(t, mc.Get(ctx, "a", &v))
	require.NoError(t, mc.Set(ctx, "c", 3, time.Minute))

	assert.Equal(t, 2, mc.Len())
	assert.ErrorIs(t, mc.Get(ctx, "b", &v), ErrCacheMiss)
	require.NoError(t, mc.Get(ctx, "a", &v))
	assert.Equal(t, 1, v)
}

func TestRedisCache_SetGet(t *testing.T) {
	db, mock := redismock.NewClientMock()
	rc := NewRedisCacheWithClient(db, "rr")
	ctx := context.Background()

	in := payload{Symbol: "MSFT", Prices: []float64{3}}
	data, _ := json.Marshal(in)

	mock.ExpectSet("rr:prices:MSFT", data, time.Minute).SetVal("OK")
	require.NoError(t, rc.Set(ctx, "prices:MSFT", in, time.Minute))

	mock.ExpectGet("rr:prices:MSFT").SetVal(string(data))
	var out payload
	require.NoError(t, rc.Get(ctx, "prices:MSFT", &out))
	assert.Equal(t, in, out)

	mock.ExpectGet("rr:missing").RedisNil()
	assert.ErrorIs(t, rc.Get(ctx, "missing", &out), ErrCacheMiss)

	mock.ExpectGet("rr:down").SetErr(errors.New("conn refused"))
	err := rc.Get(ctx, "down", &out)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)

	mock.ExpectExists("rr:a").SetVal(1)
	ok, err := rc.Exists(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectUnlink("rr:a", "rr:b").SetVal(2)
	require.NoError(t, rc.Delete(ctx, "a", "b"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLayeredCache_PromotesFromRedis(t *testing.T) {
	db, mock := redismock.NewClientMock()
	lc := NewLayeredCache(NewRedisCacheWithClient(db, "rr"))
	defer lc.mem.Close()
	ctx := context.Background()

	mock.ExpectGet("rr:k").SetVal(`"hello"`)
	mock.ExpectPTTL("rr:k").SetVal(time.Minute)

	var s string
	require.NoError(t, lc.Get(ctx, "k", &s))
	assert.Equal(t, `"hello"`, s)

	// second read is served from memory, no redis expectation needed
	require.NoError(t, lc.Get(ctx, "k", &s))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerateKeyWithParams(t *testing.T) {
	assert.Equal(t, "prices:AAPL:2y", GenerateKeyWithParams("prices", "AAPL", "2y"))
	assert.Equal(t, "p", GenerateKeyWithParams("p"))
}
