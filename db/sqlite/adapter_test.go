package sqlite

import (
	"baseroom/store"
	"baseroom/types"
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newTestAdapter(t *testing.T) store.Adapter {
	t.Helper()
	a, err := Open(filepath.Join(t.TempDir(), "baseroom_test.sqlite"))
	if err != nil {
		t.Fatalf("open sqlite adapter: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func mustUser(t *testing.T, a store.Adapter, username string) *types.User {
	t.Helper()
	user := &types.User{Username: username, Password: "hashed"}
	if err := a.UserCreate(context.Background(), user); err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}

func mustRoom(t *testing.T, a store.Adapter, host *types.User, topic, name string) *types.Room {
	t.Helper()
	room, err := a.RoomCreate(context.Background(), host.ID, topic, name, "")
	if err != nil {
		t.Fatalf("create room %s: %v", name, err)
	}
	return room
}

func TestUserCreateRejectsDuplicateUsername(t *testing.T) {
	a := newTestAdapter(t)
	mustUser(t, a, "alice")

	err := a.UserCreate(context.Background(), &types.User{Username: "alice", Password: "x"})
	if !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestUserGetMissing(t *testing.T) {
	a := newTestAdapter(t)
	if _, err := a.UserGet(context.Background(), 42); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRoomCreateReusesTopic(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)
	alice := mustUser(t, a, "alice")

	first := mustRoom(t, a, alice, "Music", "Music Lounge")
	second := mustRoom(t, a, alice, "Music", "Late Night Jams")

	if first.Topic.ID != second.Topic.ID {
		t.Fatalf("expected both rooms to share topic, got %d and %d", first.Topic.ID, second.Topic.ID)
	}
	if first.Host.ID != alice.ID {
		t.Fatalf("expected host %d, got %d", alice.ID, first.Host.ID)
	}
	if first.UUID == "" || first.UUID == second.UUID {
		t.Fatalf("expected distinct room uuids, got %q and %q", first.UUID, second.UUID)
	}

	topics, err := a.TopicsFilter(ctx, "", 0)
	if err != nil {
		t.Fatalf("filter topics: %v", err)
	}
	if len(topics) != 1 || topics[0].RoomCount != 2 {
		t.Fatalf("expected one topic with two rooms, got %+v", topics)
	}
}

func TestRoomCreateRequiresTopic(t *testing.T) {
	a := newTestAdapter(t)
	alice := mustUser(t, a, "alice")

	_, err := a.RoomCreate(context.Background(), alice.ID, "", "No Topic", "")
	var verr *store.ValidationError
	if !errors.As(err, &verr) || verr.Field != "topic" {
		t.Fatalf("expected topic validation error, got %v", err)
	}
}

func TestTopicGetOrCreateConcurrent(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)

	const workers = 8
	ids := make([]int, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			topic, err := a.TopicGetOrCreate(ctx, "Jazz")
			errs[i] = err
			if err == nil {
				ids[i] = topic.ID
			}
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("worker %d: %v", i, err)
		}
		if ids[i] != ids[0] {
			t.Fatalf("expected one Jazz topic, got ids %v", ids)
		}
	}

	topics, err := a.TopicsFilter(ctx, "jazz", 0)
	if err != nil {
		t.Fatalf("filter topics: %v", err)
	}
	if len(topics) != 1 {
		t.Fatalf("expected 1 topic, got %d", len(topics))
	}
}

func TestRoomsFilterIsCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)
	alice := mustUser(t, a, "alice")
	mustRoom(t, a, alice, "Music", "Music Lounge")
	mustRoom(t, a, alice, "Café", "Ça va")

	cases := []struct {
		q    string
		want int
	}{
		{"", 2},
		{"musi", 1},
		{"LOUNGE", 1},
		{"çA", 1},
		{"CAFÉ", 1},
		{"xyz", 0},
	}
	for _, tc := range cases {
		rooms, err := a.RoomsFilter(ctx, tc.q)
		if err != nil {
			t.Fatalf("filter %q: %v", tc.q, err)
		}
		if len(rooms) != tc.want {
			t.Fatalf("filter %q: expected %d rooms, got %d", tc.q, tc.want, len(rooms))
		}
	}
}

func TestRoomsOrderedByLastUpdate(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)
	alice := mustUser(t, a, "alice")
	older := mustRoom(t, a, alice, "Music", "Older")
	time.Sleep(5 * time.Millisecond)
	mustRoom(t, a, alice, "Music", "Newer")

	rooms, err := a.RoomsFilter(ctx, "")
	if err != nil {
		t.Fatalf("filter rooms: %v", err)
	}
	if rooms[0].Name != "Newer" {
		t.Fatalf("expected newest room first, got %q", rooms[0].Name)
	}

	time.Sleep(5 * time.Millisecond)
	if _, err := a.RoomUpdate(ctx, older.UUID, "Music", "Older", "edited"); err != nil {
		t.Fatalf("update room: %v", err)
	}
	rooms, err = a.RoomsFilter(ctx, "")
	if err != nil {
		t.Fatalf("filter rooms: %v", err)
	}
	if rooms[0].UUID != older.UUID {
		t.Fatalf("expected updated room first, got %q", rooms[0].Name)
	}
}

func TestRoomUpdateMissing(t *testing.T) {
	a := newTestAdapter(t)
	_, err := a.RoomUpdate(context.Background(), "missing", "Music", "Name", "")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMessageCreateAddsParticipant(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)
	alice := mustUser(t, a, "alice")
	bob := mustUser(t, a, "bob")
	room := mustRoom(t, a, alice, "Music", "Music Lounge")

	msg, err := a.MessageCreate(ctx, room.ID, bob.ID, "hello")
	if err != nil {
		t.Fatalf("create message: %v", err)
	}
	if msg.Author.ID != bob.ID || msg.Room.UUID != room.UUID || msg.Room.TopicName != "Music" {
		t.Fatalf("unexpected message %+v", msg)
	}

	participants, err := a.ParticipantsForRoom(ctx, room.ID)
	if err != nil {
		t.Fatalf("list participants: %v", err)
	}
	if len(participants) != 1 || participants[0].ID != bob.ID {
		t.Fatalf("expected bob as only participant, got %+v", participants)
	}
}

func TestMessageCreateRejectsBlankBody(t *testing.T) {
	a := newTestAdapter(t)
	alice := mustUser(t, a, "alice")
	room := mustRoom(t, a, alice, "Music", "Music Lounge")

	_, err := a.MessageCreate(context.Background(), room.ID, alice.ID, "   ")
	var verr *store.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestMessagesNewestFirst(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)
	alice := mustUser(t, a, "alice")
	room := mustRoom(t, a, alice, "Music", "Music Lounge")

	for _, body := range []string{"first", "second", "third"} {
		if _, err := a.MessageCreate(ctx, room.ID, alice.ID, body); err != nil {
			t.Fatalf("create message: %v", err)
		}
	}

	messages, err := a.MessagesForRoom(ctx, room.ID)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(messages) != 3 || messages[0].Body != "third" || messages[2].Body != "first" {
		t.Fatalf("expected newest first, got %+v", messages)
	}
}

func TestParticipantAddIsIdempotent(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)
	alice := mustUser(t, a, "alice")
	bob := mustUser(t, a, "bob")
	room := mustRoom(t, a, alice, "Music", "Music Lounge")

	for i := 0; i < 3; i++ {
		if err := a.ParticipantAdd(ctx, room.ID, bob.ID); err != nil {
			t.Fatalf("add participant: %v", err)
		}
	}

	participants, err := a.ParticipantsForRoom(ctx, room.ID)
	if err != nil {
		t.Fatalf("list participants: %v", err)
	}
	if len(participants) != 1 {
		t.Fatalf("expected 1 participant, got %d", len(participants))
	}

	joined, err := a.RoomsByParticipant(ctx, bob.ID)
	if err != nil {
		t.Fatalf("rooms by participant: %v", err)
	}
	if len(joined) != 1 || joined[0].UUID != room.UUID {
		t.Fatalf("expected bob to have joined %s, got %+v", room.UUID, joined)
	}
}

func TestRoomDeleteCascades(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)
	alice := mustUser(t, a, "alice")
	room := mustRoom(t, a, alice, "Music", "Music Lounge")
	msg, err := a.MessageCreate(ctx, room.ID, alice.ID, "hello")
	if err != nil {
		t.Fatalf("create message: %v", err)
	}

	if err := a.RoomDelete(ctx, room.UUID); err != nil {
		t.Fatalf("delete room: %v", err)
	}

	if _, err := a.RoomGet(ctx, room.UUID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected room to be gone, got %v", err)
	}
	if _, err := a.MessageGet(ctx, msg.UUID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected message to be gone, got %v", err)
	}
	joined, err := a.RoomsByParticipant(ctx, alice.ID)
	if err != nil {
		t.Fatalf("rooms by participant: %v", err)
	}
	if len(joined) != 0 {
		t.Fatalf("expected no participations left, got %d", len(joined))
	}
	if err := a.RoomDelete(ctx, room.UUID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected second delete to report ErrNotFound, got %v", err)
	}
}

func TestMessagesFilterMatchesTopic(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)
	alice := mustUser(t, a, "alice")
	music := mustRoom(t, a, alice, "Music", "Music Lounge")
	books := mustRoom(t, a, alice, "Books", "Reading Club")
	if _, err := a.MessageCreate(ctx, music.ID, alice.ID, "play it loud"); err != nil {
		t.Fatalf("create message: %v", err)
	}
	if _, err := a.MessageCreate(ctx, books.ID, alice.ID, "chapter one"); err != nil {
		t.Fatalf("create message: %v", err)
	}

	messages, err := a.MessagesFilter(ctx, "MUSIC")
	if err != nil {
		t.Fatalf("filter messages: %v", err)
	}
	if len(messages) != 1 || messages[0].Body != "play it loud" {
		t.Fatalf("expected only the music message, got %+v", messages)
	}
}

func TestWritesIntoDeletedRoomReportNotFound(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)
	alice := mustUser(t, a, "alice")
	bob := mustUser(t, a, "bob")
	room := mustRoom(t, a, alice, "Music", "Music Lounge")

	if err := a.RoomDelete(ctx, room.UUID); err != nil {
		t.Fatalf("delete room: %v", err)
	}

	// room still holds the id loaded before the delete.
	if err := a.ParticipantAdd(ctx, room.ID, bob.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound adding participant, got %v", err)
	}
	if _, err := a.MessageCreate(ctx, room.ID, bob.ID, "too late"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound posting message, got %v", err)
	}
}

func TestRoomsFilterFoldsSharpS(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)
	alice := mustUser(t, a, "alice")
	mustRoom(t, a, alice, "Travel", "Hauptstraße")

	for _, q := range []string{"straße", "STRASSE", "strasse"} {
		rooms, err := a.RoomsFilter(ctx, q)
		if err != nil {
			t.Fatalf("filter %q: %v", q, err)
		}
		if len(rooms) != 1 {
			t.Fatalf("filter %q: expected 1 room, got %d", q, len(rooms))
		}
	}
}
