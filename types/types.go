package types

import "time"

type User struct {
	ID       int       `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"-"`
	Password string    `json:"-"`
	Created  time.Time `json:"created"`
}

type Topic struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	RoomCount int       `json:"room_count"`
	Created   time.Time `json:"created"`
}

type Room struct {
	ID          int       `json:"id"`
	UUID        string    `json:"uuid"`
	Host        User      `json:"host"`
	Topic       Topic     `json:"topic"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Created     time.Time `json:"created"`
	Updated     time.Time `json:"updated"`
}

type Message struct {
	ID      int       `json:"id"`
	UUID    string    `json:"uuid"`
	Author  User      `json:"author"`
	RoomID  int       `json:"room_id"`
	Room    RoomRef   `json:"room"`
	Body    string    `json:"body"`
	Created time.Time `json:"created"`
}

// RoomRef is the slice of a room carried by each message row.
type RoomRef struct {
	ID        int    `json:"id"`
	UUID      string `json:"uuid"`
	Name      string `json:"name"`
	TopicName string `json:"topic_name"`
}

type RoomPage struct {
	Room         Room      `json:"room"`
	Messages     []Message `json:"room_messages"`
	Participants []User    `json:"participants"`
}

type HomePage struct {
	Query      string    `json:"q"`
	Rooms      []Room    `json:"rooms"`
	RoomCount  int       `json:"room_count"`
	Topics     []Topic   `json:"topics"`
	TopicLimit []Topic   `json:"topic_limit"`
	Messages   []Message `json:"room_messages"`
}

type ProfilePage struct {
	User        User      `json:"user"`
	Rooms       []Room    `json:"rooms"`
	JoinedRooms []Room    `json:"joined_rooms"`
	Messages    []Message `json:"room_messages"`
	Topics      []Topic   `json:"topics"`
}
