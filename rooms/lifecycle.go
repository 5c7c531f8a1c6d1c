// Package rooms holds the room and message lifecycle: creation, host-only
// updates and deletes, message posting, membership and search.
//
// Every operation takes the acting user explicitly. A nil actor is an anonymous
// caller.
package rooms

import (
	"baseroom/metrics"
	"baseroom/store"
	"baseroom/types"
	"context"
	"time"
)

const topicLimit = 5

// Event names published to room subscribers.
const (
	EventMessageCreated = "message-created"
	EventMessageDeleted = "message-deleted"
	EventRoomUpdated    = "room-updated"
	EventRoomDeleted    = "room-deleted"
)

// Notifier receives room events after they are committed.
type Notifier interface {
	Publish(roomUUID, event string, data interface{})
}

type nopNotifier struct{}

func (nopNotifier) Publish(string, string, interface{}) {}

type Controller struct {
	Store    store.Adapter
	Notifier Notifier
	Metrics  *metrics.Metrics

	limiter *messageLimiter
}

func NewController(s store.Adapter, n Notifier, m *metrics.Metrics) *Controller {
	if n == nil {
		n = nopNotifier{}
	}
	return &Controller{
		Store:    s,
		Notifier: n,
		Metrics:  m,
		limiter:  newMessageLimiter(messageRateWindow, messageRateMaxPerWindow),
	}
}

func (ctl *Controller) CreateRoom(ctx context.Context, actor *types.User, in RoomInput) (*types.Room, error) {
	if actor == nil {
		return nil, store.ErrUnauthenticated
	}
	if err := in.Normalize(); err != nil {
		return nil, err
	}

	room, err := ctl.Store.RoomCreate(ctx, actor.ID, in.Topic, in.Name, in.Description)
	if err != nil {
		return nil, err
	}
	ctl.Metrics.RoomCreated()
	return room, nil
}

// loadOwnedRoom resolves the room and checks that actor hosts it.
func (ctl *Controller) loadOwnedRoom(ctx context.Context, actor *types.User, roomUUID, action string) (*types.Room, error) {
	if actor == nil {
		return nil, store.ErrUnauthenticated
	}
	room, err := ctl.Store.RoomGet(ctx, roomUUID)
	if err != nil {
		return nil, err
	}
	if !CanModifyRoom(actor, room) {
		ctl.Metrics.PermissionDenied(action)
		return nil, store.ErrPermissionDenied
	}
	return room, nil
}

// EditRoom returns the room for the update form, provided actor hosts it.
func (ctl *Controller) EditRoom(ctx context.Context, actor *types.User, roomUUID string) (*types.Room, error) {
	return ctl.loadOwnedRoom(ctx, actor, roomUUID, "update_room")
}

func (ctl *Controller) UpdateRoom(ctx context.Context, actor *types.User, roomUUID string, in RoomInput) (*types.Room, error) {
	if _, err := ctl.loadOwnedRoom(ctx, actor, roomUUID, "update_room"); err != nil {
		return nil, err
	}
	if err := in.Normalize(); err != nil {
		return nil, err
	}

	room, err := ctl.Store.RoomUpdate(ctx, roomUUID, in.Topic, in.Name, in.Description)
	if err != nil {
		return nil, err
	}
	ctl.Metrics.RoomUpdated()
	ctl.Notifier.Publish(room.UUID, EventRoomUpdated, room)
	return room, nil
}

// DeleteRoom deletes the room and, through the schema, its messages and
// participants. Without confirmed it only returns the room for the
// confirmation view.
func (ctl *Controller) DeleteRoom(ctx context.Context, actor *types.User, roomUUID string, confirmed bool) (*types.Room, error) {
	room, err := ctl.loadOwnedRoom(ctx, actor, roomUUID, "delete_room")
	if err != nil {
		return nil, err
	}
	if !confirmed {
		return room, nil
	}

	if err := ctl.Store.RoomDelete(ctx, room.UUID); err != nil {
		return nil, err
	}
	ctl.Metrics.RoomDeleted()
	ctl.Notifier.Publish(room.UUID, EventRoomDeleted, map[string]string{"uuid": room.UUID})
	return room, nil
}

// ViewRoom records actor as a participant and returns the room page. Anonymous
// callers get ErrUnauthenticated once the room is known to exist.
func (ctl *Controller) ViewRoom(ctx context.Context, actor *types.User, roomUUID string) (*types.RoomPage, error) {
	room, err := ctl.Store.RoomGet(ctx, roomUUID)
	if err != nil {
		return nil, err
	}
	if actor == nil {
		return nil, store.ErrUnauthenticated
	}

	if err := ctl.RecordView(ctx, room, actor); err != nil {
		return nil, err
	}

	messages, err := ctl.Store.MessagesForRoom(ctx, room.ID)
	if err != nil {
		return nil, err
	}
	participants, err := ctl.Store.ParticipantsForRoom(ctx, room.ID)
	if err != nil {
		return nil, err
	}

	return &types.RoomPage{
		Room:         *room,
		Messages:     messages,
		Participants: participants,
	}, nil
}

// PostMessage stores body as a new message by actor in the room.
func (ctl *Controller) PostMessage(ctx context.Context, actor *types.User, roomUUID, body string) (*types.Message, error) {
	room, err := ctl.Store.RoomGet(ctx, roomUUID)
	if err != nil {
		return nil, err
	}
	if actor == nil {
		return nil, store.ErrUnauthenticated
	}
	body, err = normalizeBody(body)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if ctl.limiter != nil && !ctl.limiter.allow(actor.ID, now) {
		return nil, ErrRateLimited
	}

	msg, err := ctl.Store.MessageCreate(ctx, room.ID, actor.ID, body)
	if err != nil {
		if ctl.limiter != nil {
			ctl.limiter.forget(actor.ID, now)
		}
		return nil, err
	}
	ctl.Metrics.MessagePosted()
	ctl.Notifier.Publish(room.UUID, EventMessageCreated, msg)
	return msg, nil
}

// DeleteMessage mirrors DeleteRoom for a message and its author.
func (ctl *Controller) DeleteMessage(ctx context.Context, actor *types.User, msgUUID string, confirmed bool) (*types.Message, error) {
	if actor == nil {
		return nil, store.ErrUnauthenticated
	}
	msg, err := ctl.Store.MessageGet(ctx, msgUUID)
	if err != nil {
		return nil, err
	}
	if !CanModifyMessage(actor, msg) {
		ctl.Metrics.PermissionDenied("delete_message")
		return nil, store.ErrPermissionDenied
	}
	if !confirmed {
		return msg, nil
	}

	if err := ctl.Store.MessageDelete(ctx, msg.UUID); err != nil {
		return nil, err
	}
	ctl.Metrics.MessageDeleted()
	ctl.Notifier.Publish(msg.Room.UUID, EventMessageDeleted, map[string]string{"uuid": msg.UUID})
	return msg, nil
}

func (ctl *Controller) Home(ctx context.Context, q string) (*types.HomePage, error) {
	rooms, err := ctl.FilterRooms(ctx, q)
	if err != nil {
		return nil, err
	}
	topics, err := ctl.FilterTopics(ctx, "")
	if err != nil {
		return nil, err
	}
	messages, err := ctl.FilterMessages(ctx, q)
	if err != nil {
		return nil, err
	}

	limit := topics
	if len(limit) > topicLimit {
		limit = limit[:topicLimit]
	}

	return &types.HomePage{
		Query:      q,
		Rooms:      rooms,
		RoomCount:  len(rooms),
		Topics:     topics,
		TopicLimit: limit,
		Messages:   messages,
	}, nil
}

// Activity lists every message, newest first.
func (ctl *Controller) Activity(ctx context.Context) ([]types.Message, error) {
	return ctl.FilterMessages(ctx, "")
}

func (ctl *Controller) Profile(ctx context.Context, userID int) (*types.ProfilePage, error) {
	user, err := ctl.Store.UserGet(ctx, userID)
	if err != nil {
		return nil, err
	}
	hosted, err := ctl.Store.RoomsByHost(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	joined, err := ctl.Store.RoomsByParticipant(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	messages, err := ctl.Store.MessagesByAuthor(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	topics, err := ctl.Store.TopicsFilter(ctx, "", topicLimit)
	if err != nil {
		return nil, err
	}

	return &types.ProfilePage{
		User:        *user,
		Rooms:       hosted,
		JoinedRooms: joined,
		Messages:    messages,
		Topics:      topics,
	}, nil
}
