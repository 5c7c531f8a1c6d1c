package rooms

import (
	"baseroom/types"
	"context"
	"strings"
)

// FilterRooms returns every room whose name, description or topic name contains q,
// ignoring case. An empty query matches all rooms.
func (ctl *Controller) FilterRooms(ctx context.Context, q string) ([]types.Room, error) {
	return ctl.Store.RoomsFilter(ctx, strings.TrimSpace(q))
}

// FilterMessages returns every message posted in a room whose topic name contains q.
func (ctl *Controller) FilterMessages(ctx context.Context, q string) ([]types.Message, error) {
	return ctl.Store.MessagesFilter(ctx, strings.TrimSpace(q))
}

func (ctl *Controller) FilterTopics(ctx context.Context, q string) ([]types.Topic, error) {
	return ctl.Store.TopicsFilter(ctx, strings.TrimSpace(q), 0)
}
