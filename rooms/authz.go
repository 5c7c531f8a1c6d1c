package rooms

import "baseroom/types"

// CanModifyRoom reports whether actor is the room's host.
func CanModifyRoom(actor *types.User, room *types.Room) bool {
	return actor != nil && room != nil && actor.ID == room.Host.ID
}

// CanModifyMessage reports whether actor wrote the message.
func CanModifyMessage(actor *types.User, msg *types.Message) bool {
	return actor != nil && msg != nil && actor.ID == msg.Author.ID
}
