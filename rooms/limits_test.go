package rooms

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMessageLimiterWindow(t *testing.T) {
	l := newMessageLimiter(10*time.Second, 3)
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.True(t, l.allow(1, start.Add(time.Duration(i)*time.Second)))
	}
	require.False(t, l.allow(1, start.Add(3*time.Second)), "fourth post inside the window")
	require.True(t, l.allow(2, start.Add(3*time.Second)), "other authors are independent")

	// The first post falls out of the window.
	require.True(t, l.allow(1, start.Add(10*time.Second+time.Millisecond)))
}

func TestMessageLimiterForget(t *testing.T) {
	l := newMessageLimiter(time.Minute, 1)
	now := time.Now()

	require.True(t, l.allow(7, now))
	l.forget(7, now)
	require.True(t, l.allow(7, now.Add(time.Second)))
	require.False(t, l.allow(7, now.Add(2*time.Second)))
}

func TestPostMessageRateLimited(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.ctl.limiter = newMessageLimiter(time.Minute, 2)
	room := env.createRoom(t, env.alice, "Music", "Music Lounge")

	_, err := env.ctl.PostMessage(ctx, env.bob, room.UUID, "one")
	require.NoError(t, err)
	_, err = env.ctl.PostMessage(ctx, env.bob, room.UUID, "two")
	require.NoError(t, err)
	_, err = env.ctl.PostMessage(ctx, env.bob, room.UUID, "three")
	require.ErrorIs(t, err, ErrRateLimited)

	_, err = env.ctl.PostMessage(ctx, env.alice, room.UUID, "host still posts")
	require.NoError(t, err)
}

func TestPostMessageTooLong(t *testing.T) {
	env := newTestEnv(t)
	room := env.createRoom(t, env.alice, "Music", "Music Lounge")

	_, err := env.ctl.PostMessage(context.Background(), env.bob, room.UUID, strings.Repeat("x", maxBodyLength+1))
	require.Error(t, err)
	require.Contains(t, err.Error(), "body")
}
