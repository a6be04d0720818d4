package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalInvalidator(t *testing.T) {
	store := NewStore()
	usage := NewKey("carbon-usage").With("org123").Int(1)
	history := NewKey("offset-history").With("org123").Int(10)
	untouched := NewKey("offset-history").With("org999").Int(10)

	for _, k := range []Key{usage, history, untouched} {
		store.Set(k, 1, time.Minute)
	}

	inv := NewLocalInvalidator(store)
	err := inv.Invalidate(context.Background(),
		NewKey("carbon-usage").With("org123"),
		NewKey("offset-history").With("org123"),
	)
	require.NoError(t, err)

	assert.Equal(t, 1, store.Len())
	_, ok := store.Get(untouched)
	assert.True(t, ok)
}

func TestRedisInvalidatorApply(t *testing.T) {
	store := NewStore()
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer client.Close()

	inv := newRedisInvalidator(client, store, "", logrus.New())
	assert.Equal(t, "climabill:cache:invalidate", inv.channel)

	k := NewKey("carbon-offset").With("org123").Int(1)

	tests := []struct {
		name    string
		payload string
		removed int
	}{
		{
			name:    "own message is ignored",
			payload: `{"origin":"` + inv.nodeID + `","keys":["carbon-offset:org123"]}`,
			removed: 0,
		},
		{
			name:    "malformed message is ignored",
			payload: `{not json`,
			removed: 0,
		},
		{
			name:    "peer message invalidates",
			payload: `{"origin":"peer-1","keys":["carbon-offset:org123"]}`,
			removed: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store.Set(k, 1, time.Minute)
			assert.Equal(t, tt.removed, inv.apply(tt.payload))
		})
	}
}

func newRedisNode(t *testing.T, addr string) (*RedisInvalidator, *Store) {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })
	store := NewStore()
	return newRedisInvalidator(client, store, "climabill:test:invalidate", logrus.New()), store
}

func TestRedisInvalidatorBroadcast(t *testing.T) {
	server := miniredis.RunT(t)
	writer, writerStore := newRedisNode(t, server.Addr())
	peer, peerStore := newRedisNode(t, server.Addr())

	usage := NewKey("carbon-usage").With("org123").Int(1)
	other := NewKey("carbon-usage").With("org999").Int(1)
	for _, s := range []*Store{writerStore, peerStore} {
		s.Set(usage, 1, time.Minute)
		s.Set(other, 1, time.Minute)
	}

	ctx, cancel := context.WithCancel(context.Background())
	listening := make(chan error, 1)
	go func() { listening <- peer.Listen(ctx) }()

	require.Eventually(t, func() bool {
		return server.PubSubNumSub(peer.channel)[peer.channel] == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, writer.Invalidate(ctx, NewKey("carbon-usage").With("org123")))

	_, ok := writerStore.Get(usage)
	assert.False(t, ok, "writer drops its own entries before publishing")

	assert.Eventually(t, func() bool {
		_, ok := peerStore.Get(usage)
		return !ok
	}, time.Second, 5*time.Millisecond)
	_, ok = peerStore.Get(other)
	assert.True(t, ok)

	cancel()
	select {
	case err := <-listening:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Listen did not return after cancel")
	}
}

func TestRedisInvalidatorPublishFailure(t *testing.T) {
	server := miniredis.NewMiniRedis()
	require.NoError(t, server.Start())
	inv, store := newRedisNode(t, server.Addr())
	server.Close()

	k := NewKey("carbon-offset").With("org123")
	store.Set(k, 1, time.Minute)

	err := inv.Invalidate(context.Background(), k)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to publish invalidation")

	_, ok := store.Get(k)
	assert.False(t, ok, "local entries are dropped even when the broadcast fails")
}
