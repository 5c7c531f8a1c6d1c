package rooms

import (
	"baseroom/store"
	"baseroom/types"
	"context"
)

// RecordView adds user to the room participants. Repeated views are no-ops.
func (ctl *Controller) RecordView(ctx context.Context, room *types.Room, user *types.User) error {
	if user == nil {
		return store.ErrUnauthenticated
	}
	if err := ctl.Store.ParticipantAdd(ctx, room.ID, user.ID); err != nil {
		return err
	}
	ctl.Metrics.RoomViewed()
	return nil
}
