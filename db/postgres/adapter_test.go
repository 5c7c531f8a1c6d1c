//go:build postgres

package postgres

import (
	"baseroom/store"
	"baseroom/types"
	"context"
	"errors"
	"os"
	"sync"
	"testing"
)

// Run with: TEST_DATABASE_URL=postgres://... go test -tags postgres ./db/postgres
func newTestAdapter(t *testing.T) *adapter {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	a, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open postgres adapter: %v", err)
	}
	pg := a.(*adapter)
	if _, err := pg.db.Exec(ctx, `TRUNCATE room_participants, messages, rooms, topics, users RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("reset tables: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return pg
}

func TestRoomLifecycle(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)

	alice := &types.User{Username: "alice", Password: "hashed"}
	if err := a.UserCreate(ctx, alice); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := a.UserCreate(ctx, &types.User{Username: "alice", Password: "x"}); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	room, err := a.RoomCreate(ctx, alice.ID, "Music", "Music Lounge", "")
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if _, err := a.MessageCreate(ctx, room.ID, alice.ID, "hello"); err != nil {
		t.Fatalf("create message: %v", err)
	}

	rooms, err := a.RoomsFilter(ctx, "MUSI")
	if err != nil {
		t.Fatalf("filter rooms: %v", err)
	}
	if len(rooms) != 1 {
		t.Fatalf("expected 1 room, got %d", len(rooms))
	}

	participants, err := a.ParticipantsForRoom(ctx, room.ID)
	if err != nil {
		t.Fatalf("list participants: %v", err)
	}
	if len(participants) != 1 {
		t.Fatalf("expected author as participant, got %d", len(participants))
	}

	if err := a.RoomDelete(ctx, room.UUID); err != nil {
		t.Fatalf("delete room: %v", err)
	}
	messages, err := a.MessagesByAuthor(ctx, alice.ID)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(messages) != 0 {
		t.Fatalf("expected messages to cascade, got %d", len(messages))
	}
}

func TestTopicGetOrCreateConcurrent(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)

	const workers = 8
	ids := make([]int, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			topic, err := a.TopicGetOrCreate(ctx, "Jazz")
			if err != nil {
				t.Errorf("worker %d: %v", i, err)
				return
			}
			ids[i] = topic.ID
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		if id != ids[0] {
			t.Fatalf("expected one Jazz topic, got ids %v", ids)
		}
	}
}

func TestWritesIntoDeletedRoomReportNotFound(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)

	alice := &types.User{Username: "alice", Password: "hashed"}
	if err := a.UserCreate(ctx, alice); err != nil {
		t.Fatalf("create user: %v", err)
	}
	room, err := a.RoomCreate(ctx, alice.ID, "Music", "Music Lounge", "")
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if err := a.RoomDelete(ctx, room.UUID); err != nil {
		t.Fatalf("delete room: %v", err)
	}

	if err := a.ParticipantAdd(ctx, room.ID, alice.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound adding participant, got %v", err)
	}
	if _, err := a.MessageCreate(ctx, room.ID, alice.ID, "too late"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound posting message, got %v", err)
	}
}

func TestRoomsFilterFoldsSharpS(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)

	alice := &types.User{Username: "alice", Password: "hashed"}
	if err := a.UserCreate(ctx, alice); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := a.RoomCreate(ctx, alice.ID, "Straßenmusik", "Hauptstraße", ""); err != nil {
		t.Fatalf("create room: %v", err)
	}

	for _, q := range []string{"straße", "STRASSE", "strasse"} {
		rooms, err := a.RoomsFilter(ctx, q)
		if err != nil {
			t.Fatalf("filter rooms %q: %v", q, err)
		}
		if len(rooms) != 1 {
			t.Fatalf("expected 1 room for %q, got %d", q, len(rooms))
		}
	}

	topics, err := a.TopicsFilter(ctx, "STRASSENMUSIK", 0)
	if err != nil {
		t.Fatalf("filter topics: %v", err)
	}
	if len(topics) != 1 {
		t.Fatalf("expected 1 topic, got %d", len(topics))
	}
}
