// Package sqlite is the default store adapter, backed by a single SQLite file.
package sqlite

import (
	"baseroom/db"
	"baseroom/store"
	"baseroom/types"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
)

type adapter struct {
	db *sqlx.DB
}

// Open opens (creating if needed) the database file and migrates it to the
// latest schema.
func Open(path string) (store.Adapter, error) {
	conn, err := db.InitDB(path, db.MigrationFiles, "migrations")
	if err != nil {
		return nil, err
	}
	return &adapter{db: sqlx.NewDb(conn, "sqlite3")}, nil
}

func (a *adapter) Close() error {
	db.CloseDB(a.db.DB)
	return nil
}

func now() string {
	return db.FormatTime(time.Now())
}

func (a *adapter) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := a.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

// isForeignKeyViolation reports a write that referenced a row deleted in the
// meantime, such as a room removed by its host.
func isForeignKeyViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}
	return false
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return fmt.Errorf("failed to load %s: %w", what, err)
}

// Users

type userRow struct {
	ID       int    `db:"id"`
	Username string `db:"username"`
	Email    string `db:"email"`
	Password string `db:"password"`
	Created  string `db:"created_at"`
}

func (r userRow) user() types.User {
	return types.User{
		ID:       r.ID,
		Username: r.Username,
		Email:    r.Email,
		Password: r.Password,
		Created:  db.ParseTime(r.Created),
	}
}

func (a *adapter) UserCreate(ctx context.Context, user *types.User) error {
	if user.Username == "" {
		return store.Invalid("username", "This field is required.")
	}
	if user.Password == "" {
		return store.Invalid("password", "This field is required.")
	}

	created := time.Now().UTC()
	query := `INSERT INTO users (username, email, password, created_at) VALUES (?, ?, ?, ?) RETURNING id`
	err := a.db.QueryRowxContext(ctx, query, user.Username, user.Email, user.Password, db.FormatTime(created)).Scan(&user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	user.Created = db.ParseTime(db.FormatTime(created))
	return nil
}

func (a *adapter) UserGet(ctx context.Context, id int) (*types.User, error) {
	var row userRow
	err := a.db.GetContext(ctx, &row, `SELECT id, username, email, password, created_at FROM users WHERE id = ?`, id)
	if err != nil {
		return nil, notFound(err, "user")
	}
	user := row.user()
	return &user, nil
}

func (a *adapter) UserGetByUsername(ctx context.Context, username string) (*types.User, error) {
	var row userRow
	err := a.db.GetContext(ctx, &row, `SELECT id, username, email, password, created_at FROM users WHERE username = ?`, username)
	if err != nil {
		return nil, notFound(err, "user")
	}
	user := row.user()
	return &user, nil
}

func (a *adapter) UserUpdate(ctx context.Context, user *types.User) error {
	res, err := a.db.ExecContext(ctx, `UPDATE users SET username = ?, email = ? WHERE id = ?`, user.Username, user.Email, user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Topics

type topicRow struct {
	ID        int    `db:"id"`
	Name      string `db:"name"`
	Created   string `db:"created_at"`
	RoomCount int    `db:"room_count"`
}

func (r topicRow) topic() types.Topic {
	return types.Topic{ID: r.ID, Name: r.Name, RoomCount: r.RoomCount, Created: db.ParseTime(r.Created)}
}

// topicGetOrCreate relies on the UNIQUE(name) constraint: a concurrent insert of
// the same name turns this INSERT into a no-op and the SELECT finds its row.
func topicGetOrCreate(ctx context.Context, tx *sqlx.Tx, name string) (*types.Topic, error) {
	if name == "" {
		return nil, store.Invalid("topic", "This field is required.")
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO topics (name, created_at) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`, name, now())
	if err != nil {
		return nil, fmt.Errorf("failed to insert topic: %w", err)
	}

	var row topicRow
	err = tx.GetContext(ctx, &row, `SELECT id, name, created_at FROM topics WHERE name = ?`, name)
	if err != nil {
		return nil, notFound(err, "topic")
	}
	topic := row.topic()
	return &topic, nil
}

func (a *adapter) TopicGetOrCreate(ctx context.Context, name string) (*types.Topic, error) {
	var topic *types.Topic
	err := a.withTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		topic, err = topicGetOrCreate(ctx, tx, name)
		return err
	})
	return topic, err
}

func (a *adapter) TopicsFilter(ctx context.Context, q string, limit int) ([]types.Topic, error) {
	if limit <= 0 {
		limit = -1
	}
	var rows []topicRow
	err := a.db.SelectContext(ctx, &rows, `
		SELECT t.id, t.name, t.created_at, COUNT(r.id) AS room_count
		  FROM topics t
		  LEFT JOIN rooms r ON r.topic_id = t.id
		 WHERE instr(casefold(t.name), casefold(?)) > 0
		 GROUP BY t.id
		 ORDER BY t.name ASC
		 LIMIT ?`, q, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to filter topics: %w", err)
	}

	topics := make([]types.Topic, 0, len(rows))
	for _, row := range rows {
		topics = append(topics, row.topic())
	}
	return topics, nil
}

// Rooms

const roomSelect = `
	SELECT r.id, r.uuid, r.name, r.description, r.created_at, r.updated_at,
	       u.id AS host_id, u.username AS host_username, u.email AS host_email, u.created_at AS host_created,
	       t.id AS topic_id, t.name AS topic_name, t.created_at AS topic_created
	  FROM rooms r
	  JOIN users u ON u.id = r.host_id
	  JOIN topics t ON t.id = r.topic_id`

const roomOrder = ` ORDER BY r.updated_at DESC, r.created_at DESC, r.id DESC`

type roomRow struct {
	ID           int    `db:"id"`
	UUID         string `db:"uuid"`
	Name         string `db:"name"`
	Description  string `db:"description"`
	Created      string `db:"created_at"`
	Updated      string `db:"updated_at"`
	HostID       int    `db:"host_id"`
	HostUsername string `db:"host_username"`
	HostEmail    string `db:"host_email"`
	HostCreated  string `db:"host_created"`
	TopicID      int    `db:"topic_id"`
	TopicName    string `db:"topic_name"`
	TopicCreated string `db:"topic_created"`
}

func (r roomRow) room() types.Room {
	return types.Room{
		ID:          r.ID,
		UUID:        r.UUID,
		Name:        r.Name,
		Description: r.Description,
		Created:     db.ParseTime(r.Created),
		Updated:     db.ParseTime(r.Updated),
		Host: types.User{
			ID:       r.HostID,
			Username: r.HostUsername,
			Email:    r.HostEmail,
			Created:  db.ParseTime(r.HostCreated),
		},
		Topic: types.Topic{
			ID:      r.TopicID,
			Name:    r.TopicName,
			Created: db.ParseTime(r.TopicCreated),
		},
	}
}

func roomsFromRows(rows []roomRow) []types.Room {
	rooms := make([]types.Room, 0, len(rows))
	for _, row := range rows {
		rooms = append(rooms, row.room())
	}
	return rooms
}

func roomByID(ctx context.Context, q sqlx.QueryerContext, id int) (*types.Room, error) {
	var row roomRow
	if err := sqlx.GetContext(ctx, q, &row, roomSelect+` WHERE r.id = ?`, id); err != nil {
		return nil, notFound(err, "room")
	}
	room := row.room()
	return &room, nil
}

func (a *adapter) RoomCreate(ctx context.Context, hostID int, topicName, name, description string) (*types.Room, error) {
	if hostID <= 0 {
		return nil, store.Invalid("host", "This field is required.")
	}
	if name == "" {
		return nil, store.Invalid("name", "This field is required.")
	}

	var room *types.Room
	err := a.withTx(ctx, func(tx *sqlx.Tx) error {
		topic, err := topicGetOrCreate(ctx, tx, topicName)
		if err != nil {
			return err
		}

		ts := now()
		var id int
		query := `INSERT INTO rooms (uuid, host_id, topic_id, name, description, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`
		err = tx.QueryRowxContext(ctx, query, uuid.NewString(), hostID, topic.ID, name, description, ts, ts).Scan(&id)
		if err != nil {
			return fmt.Errorf("failed to create room: %w", err)
		}

		room, err = roomByID(ctx, tx, id)
		return err
	})
	return room, err
}

func (a *adapter) RoomGet(ctx context.Context, uuid string) (*types.Room, error) {
	var row roomRow
	if err := a.db.GetContext(ctx, &row, roomSelect+` WHERE r.uuid = ?`, uuid); err != nil {
		return nil, notFound(err, "room")
	}
	room := row.room()
	return &room, nil
}

func (a *adapter) RoomUpdate(ctx context.Context, uuid, topicName, name, description string) (*types.Room, error) {
	if name == "" {
		return nil, store.Invalid("name", "This field is required.")
	}

	var room *types.Room
	err := a.withTx(ctx, func(tx *sqlx.Tx) error {
		topic, err := topicGetOrCreate(ctx, tx, topicName)
		if err != nil {
			return err
		}

		var id int
		query := `UPDATE rooms SET name = ?, topic_id = ?, description = ?, updated_at = ? WHERE uuid = ? RETURNING id`
		err = tx.QueryRowxContext(ctx, query, name, topic.ID, description, now(), uuid).Scan(&id)
		if err != nil {
			return notFound(err, "room")
		}

		room, err = roomByID(ctx, tx, id)
		return err
	})
	return room, err
}

func (a *adapter) RoomDelete(ctx context.Context, uuid string) error {
	res, err := a.db.ExecContext(ctx, `DELETE FROM rooms WHERE uuid = ?`, uuid)
	if err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (a *adapter) selectRooms(ctx context.Context, query string, args ...interface{}) ([]types.Room, error) {
	var rows []roomRow
	if err := a.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	return roomsFromRows(rows), nil
}

func (a *adapter) RoomsFilter(ctx context.Context, q string) ([]types.Room, error) {
	return a.selectRooms(ctx, roomSelect+`
		 WHERE instr(casefold(t.name), casefold(?1)) > 0
		    OR instr(casefold(r.name), casefold(?1)) > 0
		    OR instr(casefold(r.description), casefold(?1)) > 0`+roomOrder, q)
}

func (a *adapter) RoomsByHost(ctx context.Context, userID int) ([]types.Room, error) {
	return a.selectRooms(ctx, roomSelect+` WHERE r.host_id = ?`+roomOrder, userID)
}

func (a *adapter) RoomsByParticipant(ctx context.Context, userID int) ([]types.Room, error) {
	return a.selectRooms(ctx, roomSelect+`
		  JOIN room_participants p ON p.room_id = r.id
		 WHERE p.user_id = ?`+roomOrder, userID)
}

// Messages

const messageSelect = `
	SELECT m.id, m.uuid, m.body, m.created_at,
	       u.id AS author_id, u.username AS author_username, u.email AS author_email, u.created_at AS author_created,
	       r.id AS room_id, r.uuid AS room_uuid, r.name AS room_name, t.name AS topic_name
	  FROM messages m
	  JOIN users u ON u.id = m.user_id
	  JOIN rooms r ON r.id = m.room_id
	  JOIN topics t ON t.id = r.topic_id`

const messageOrder = ` ORDER BY m.created_at DESC, m.id DESC`

type messageRow struct {
	ID             int    `db:"id"`
	UUID           string `db:"uuid"`
	Body           string `db:"body"`
	Created        string `db:"created_at"`
	AuthorID       int    `db:"author_id"`
	AuthorUsername string `db:"author_username"`
	AuthorEmail    string `db:"author_email"`
	AuthorCreated  string `db:"author_created"`
	RoomID         int    `db:"room_id"`
	RoomUUID       string `db:"room_uuid"`
	RoomName       string `db:"room_name"`
	TopicName      string `db:"topic_name"`
}

func (r messageRow) message() types.Message {
	return types.Message{
		ID:      r.ID,
		UUID:    r.UUID,
		Body:    r.Body,
		Created: db.ParseTime(r.Created),
		Author: types.User{
			ID:       r.AuthorID,
			Username: r.AuthorUsername,
			Email:    r.AuthorEmail,
			Created:  db.ParseTime(r.AuthorCreated),
		},
		RoomID: r.RoomID,
		Room: types.RoomRef{
			ID:        r.RoomID,
			UUID:      r.RoomUUID,
			Name:      r.RoomName,
			TopicName: r.TopicName,
		},
	}
}

func (a *adapter) MessageCreate(ctx context.Context, roomID, authorID int, body string) (*types.Message, error) {
	if roomID <= 0 {
		return nil, store.Invalid("room", "This field is required.")
	}
	if authorID <= 0 {
		return nil, store.Invalid("author", "This field is required.")
	}
	if strings.TrimSpace(body) == "" {
		return nil, store.Invalid("body", "This field is required.")
	}

	var msg *types.Message
	err := a.withTx(ctx, func(tx *sqlx.Tx) error {
		ts := now()
		var id int
		query := `INSERT INTO messages (uuid, room_id, user_id, body, created_at) VALUES (?, ?, ?, ?, ?) RETURNING id`
		err := tx.QueryRowxContext(ctx, query, uuid.NewString(), roomID, authorID, body, ts).Scan(&id)
		if err != nil {
			if isForeignKeyViolation(err) {
				return store.ErrNotFound
			}
			return fmt.Errorf("failed to create message: %w", err)
		}

		if err := participantAdd(ctx, tx, roomID, authorID); err != nil {
			return err
		}

		var row messageRow
		if err := tx.GetContext(ctx, &row, messageSelect+` WHERE m.id = ?`, id); err != nil {
			return notFound(err, "message")
		}
		m := row.message()
		msg = &m
		return nil
	})
	return msg, err
}

func (a *adapter) MessageGet(ctx context.Context, uuid string) (*types.Message, error) {
	var row messageRow
	if err := a.db.GetContext(ctx, &row, messageSelect+` WHERE m.uuid = ?`, uuid); err != nil {
		return nil, notFound(err, "message")
	}
	msg := row.message()
	return &msg, nil
}

func (a *adapter) MessageDelete(ctx context.Context, uuid string) error {
	res, err := a.db.ExecContext(ctx, `DELETE FROM messages WHERE uuid = ?`, uuid)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (a *adapter) selectMessages(ctx context.Context, query string, args ...interface{}) ([]types.Message, error) {
	var rows []messageRow
	if err := a.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	messages := make([]types.Message, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, row.message())
	}
	return messages, nil
}

func (a *adapter) MessagesForRoom(ctx context.Context, roomID int) ([]types.Message, error) {
	return a.selectMessages(ctx, messageSelect+` WHERE m.room_id = ?`+messageOrder, roomID)
}

func (a *adapter) MessagesFilter(ctx context.Context, q string) ([]types.Message, error) {
	return a.selectMessages(ctx, messageSelect+` WHERE instr(casefold(t.name), casefold(?)) > 0`+messageOrder, q)
}

func (a *adapter) MessagesByAuthor(ctx context.Context, userID int) ([]types.Message, error) {
	return a.selectMessages(ctx, messageSelect+` WHERE m.user_id = ?`+messageOrder, userID)
}

// Participants

func participantAdd(ctx context.Context, tx sqlx.ExecerContext, roomID, userID int) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO room_participants (room_id, user_id, joined_at) VALUES (?, ?, ?) ON CONFLICT(room_id, user_id) DO NOTHING`,
		roomID, userID, now())
	if err != nil {
		if isForeignKeyViolation(err) {
			return store.ErrNotFound
		}
		return fmt.Errorf("failed to add participant: %w", err)
	}
	return nil
}

func (a *adapter) ParticipantAdd(ctx context.Context, roomID, userID int) error {
	return participantAdd(ctx, a.db, roomID, userID)
}

func (a *adapter) ParticipantsForRoom(ctx context.Context, roomID int) ([]types.User, error) {
	var rows []userRow
	err := a.db.SelectContext(ctx, &rows, `
		SELECT u.id, u.username, u.email, u.created_at
		  FROM room_participants p
		  JOIN users u ON u.id = p.user_id
		 WHERE p.room_id = ?
		 ORDER BY p.joined_at ASC, u.id ASC`, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}

	users := make([]types.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.user())
	}
	return users, nil
}
