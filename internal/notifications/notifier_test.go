package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestNotifier_NilRedisIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	assert.False(t, n.Enabled())
	assert.NoError(t, n.PublishUser(context.Background(), 1, "test payload"))
	assert.NoError(t, n.StartPatternSubscriber(context.Background(), func(string, string) {}))
}

func TestUserChannel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		userID   uint
		expected string
	}{
		{1, "notifications:user:1"},
		{100, "notifications:user:100"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, UserChannel(tt.userID))
		id, ok := ParseUserChannel(tt.expected)
		assert.True(t, ok)
		assert.Equal(t, tt.userID, id)
	}

	for _, bad := range []string{"notifications:user:", "notifications:user:abc", "notifications:user:0", "chat:conv:5"} {
		_, ok := ParseUserChannel(bad)
		assert.False(t, ok, bad)
	}
}

func TestNotifier_SubscriberReceivesAndStopsOnCancel(t *testing.T) {
	n := NewNotifier(newRedis(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type msg struct{ channel, payload string }
	got := make(chan msg, 4)
	require.NoError(t, n.StartPatternSubscriber(ctx, func(channel, payload string) {
		got <- msg{channel, payload}
	}))

	require.NoError(t, n.PublishUser(context.Background(), 7, "before-cancel"))
	select {
	case m := <-got:
		assert.Equal(t, "notifications:user:7", m.channel)
		assert.Equal(t, "before-cancel", m.payload)
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}

	cancel()
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, n.PublishUser(context.Background(), 7, "after-cancel"))
	assert.Never(t, func() bool {
		select {
		case m := <-got:
			return m.payload == "after-cancel"
		default:
			return false
		}
	}, 200*time.Millisecond, 10*time.Millisecond)
}

func TestNotifier_SubscriberSurvivesPanics(t *testing.T) {
	n := NewNotifier(newRedis(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan string, 2)
	require.NoError(t, n.StartPatternSubscriber(ctx, func(_, payload string) {
		if payload == "boom" {
			panic("handler failure")
		}
		got <- payload
	}))

	require.NoError(t, n.PublishUser(context.Background(), 1, "boom"))
	require.NoError(t, n.PublishUser(context.Background(), 1, "ok"))
	select {
	case p := <-got:
		assert.Equal(t, "ok", p)
	case <-time.After(time.Second):
		t.Fatal("subscriber stopped after panic")
	}
}
