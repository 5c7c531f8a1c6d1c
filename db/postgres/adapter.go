// Package postgres is a store adapter for PostgreSQL.
package postgres

import (
	"baseroom/db"
	"baseroom/logs"
	"baseroom/store"
	"baseroom/types"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

type adapter struct {
	db *pgxpool.Pool
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Open connects to dsn and creates any missing tables.
func Open(ctx context.Context, dsn string) (store.Adapter, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres adapter failed to parse config: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres adapter failed to connect: %w", err)
	}

	a := &adapter{db: pool}
	if err := a.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return a, nil
}

func (a *adapter) Close() error {
	a.db.Close()
	logs.Info.Println("Database connection closed")
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation
}

func notFound(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	return fmt.Errorf("failed to load %s: %w", what, err)
}

// Users

func (a *adapter) UserCreate(ctx context.Context, user *types.User) error {
	if user.Username == "" {
		return store.Invalid("username", "This field is required.")
	}
	if user.Password == "" {
		return store.Invalid("password", "This field is required.")
	}

	err := a.db.QueryRow(ctx,
		`INSERT INTO users (username, email, password) VALUES ($1, $2, $3) RETURNING id, created_at`,
		user.Username, user.Email, user.Password).Scan(&user.ID, &user.Created)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (a *adapter) userWhere(ctx context.Context, where string, arg interface{}) (*types.User, error) {
	var user types.User
	err := a.db.QueryRow(ctx, `SELECT id, username, email, password, created_at FROM users WHERE `+where, arg).
		Scan(&user.ID, &user.Username, &user.Email, &user.Password, &user.Created)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return &user, nil
}

func (a *adapter) UserGet(ctx context.Context, id int) (*types.User, error) {
	return a.userWhere(ctx, "id = $1", id)
}

func (a *adapter) UserGetByUsername(ctx context.Context, username string) (*types.User, error) {
	return a.userWhere(ctx, "username = $1", username)
}

func (a *adapter) UserUpdate(ctx context.Context, user *types.User) error {
	tag, err := a.db.Exec(ctx, `UPDATE users SET username = $1, email = $2 WHERE id = $3`, user.Username, user.Email, user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Topics

func topicGetOrCreate(ctx context.Context, q querier, name string) (*types.Topic, error) {
	if name == "" {
		return nil, store.Invalid("topic", "This field is required.")
	}
	if _, err := q.Exec(ctx, `INSERT INTO topics (name, name_fold) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`, name, db.Fold(name)); err != nil {
		return nil, fmt.Errorf("failed to insert topic: %w", err)
	}

	var topic types.Topic
	err := q.QueryRow(ctx, `SELECT id, name, created_at FROM topics WHERE name = $1`, name).
		Scan(&topic.ID, &topic.Name, &topic.Created)
	if err != nil {
		return nil, notFound(err, "topic")
	}
	return &topic, nil
}

func (a *adapter) TopicGetOrCreate(ctx context.Context, name string) (*types.Topic, error) {
	var topic *types.Topic
	err := pgx.BeginFunc(ctx, a.db, func(tx pgx.Tx) error {
		var err error
		topic, err = topicGetOrCreate(ctx, tx, name)
		return err
	})
	return topic, err
}

func (a *adapter) TopicsFilter(ctx context.Context, q string, limit int) ([]types.Topic, error) {
	query := `
		SELECT t.id, t.name, t.created_at, COUNT(r.id)
		  FROM topics t
		  LEFT JOIN rooms r ON r.topic_id = t.id
		 WHERE strpos(t.name_fold, $1) > 0
		 GROUP BY t.id
		 ORDER BY t.name ASC`
	args := []interface{}{db.Fold(q)}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := a.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to filter topics: %w", err)
	}
	defer rows.Close()

	topics := []types.Topic{}
	for rows.Next() {
		var topic types.Topic
		if err := rows.Scan(&topic.ID, &topic.Name, &topic.Created, &topic.RoomCount); err != nil {
			return nil, fmt.Errorf("failed to scan topic: %w", err)
		}
		topics = append(topics, topic)
	}
	return topics, rows.Err()
}

// Rooms

const roomSelect = `
	SELECT r.id, r.uuid, r.name, r.description, r.created_at, r.updated_at,
	       u.id, u.username, u.email, u.created_at,
	       t.id, t.name, t.created_at
	  FROM rooms r
	  JOIN users u ON u.id = r.host_id
	  JOIN topics t ON t.id = r.topic_id`

const roomOrder = ` ORDER BY r.updated_at DESC, r.created_at DESC, r.id DESC`

func scanRoom(row pgx.Row) (types.Room, error) {
	var r types.Room
	err := row.Scan(&r.ID, &r.UUID, &r.Name, &r.Description, &r.Created, &r.Updated,
		&r.Host.ID, &r.Host.Username, &r.Host.Email, &r.Host.Created,
		&r.Topic.ID, &r.Topic.Name, &r.Topic.Created)
	return r, err
}

func roomWhere(ctx context.Context, q querier, where string, arg interface{}) (*types.Room, error) {
	room, err := scanRoom(q.QueryRow(ctx, roomSelect+` WHERE `+where, arg))
	if err != nil {
		return nil, notFound(err, "room")
	}
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
	err := pgx.BeginFunc(ctx, a.db, func(tx pgx.Tx) error {
		topic, err := topicGetOrCreate(ctx, tx, topicName)
		if err != nil {
			return err
		}

		var id int
		err = tx.QueryRow(ctx,
			`INSERT INTO rooms (uuid, host_id, topic_id, name, description, name_fold, description_fold)
			 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
			uuid.NewString(), hostID, topic.ID, name, description, db.Fold(name), db.Fold(description)).Scan(&id)
		if err != nil {
			return fmt.Errorf("failed to create room: %w", err)
		}

		room, err = roomWhere(ctx, tx, "r.id = $1", id)
		return err
	})
	return room, err
}

func (a *adapter) RoomGet(ctx context.Context, uuid string) (*types.Room, error) {
	return roomWhere(ctx, a.db, "r.uuid = $1", uuid)
}

func (a *adapter) RoomUpdate(ctx context.Context, uuid, topicName, name, description string) (*types.Room, error) {
	if name == "" {
		return nil, store.Invalid("name", "This field is required.")
	}

	var room *types.Room
	err := pgx.BeginFunc(ctx, a.db, func(tx pgx.Tx) error {
		topic, err := topicGetOrCreate(ctx, tx, topicName)
		if err != nil {
			return err
		}

		var id int
		err = tx.QueryRow(ctx,
			`UPDATE rooms SET name = $1, topic_id = $2, description = $3, name_fold = $4, description_fold = $5, updated_at = now()
			  WHERE uuid = $6 RETURNING id`,
			name, topic.ID, description, db.Fold(name), db.Fold(description), uuid).Scan(&id)
		if err != nil {
			return notFound(err, "room")
		}

		room, err = roomWhere(ctx, tx, "r.id = $1", id)
		return err
	})
	return room, err
}

func (a *adapter) RoomDelete(ctx context.Context, uuid string) error {
	tag, err := a.db.Exec(ctx, `DELETE FROM rooms WHERE uuid = $1`, uuid)
	if err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (a *adapter) selectRooms(ctx context.Context, query string, args ...interface{}) ([]types.Room, error) {
	rows, err := a.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	defer rows.Close()

	rooms := []types.Room{}
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

func (a *adapter) RoomsFilter(ctx context.Context, q string) ([]types.Room, error) {
	return a.selectRooms(ctx, roomSelect+`
		 WHERE strpos(t.name_fold, $1) > 0
		    OR strpos(r.name_fold, $1) > 0
		    OR strpos(r.description_fold, $1) > 0`+roomOrder, db.Fold(q))
}

func (a *adapter) RoomsByHost(ctx context.Context, userID int) ([]types.Room, error) {
	return a.selectRooms(ctx, roomSelect+` WHERE r.host_id = $1`+roomOrder, userID)
}

func (a *adapter) RoomsByParticipant(ctx context.Context, userID int) ([]types.Room, error) {
	return a.selectRooms(ctx, roomSelect+`
		  JOIN room_participants p ON p.room_id = r.id
		 WHERE p.user_id = $1`+roomOrder, userID)
}

// Messages

const messageSelect = `
	SELECT m.id, m.uuid, m.body, m.created_at,
	       u.id, u.username, u.email, u.created_at,
	       r.id, r.uuid, r.name, t.name
	  FROM messages m
	  JOIN users u ON u.id = m.user_id
	  JOIN rooms r ON r.id = m.room_id
	  JOIN topics t ON t.id = r.topic_id`

const messageOrder = ` ORDER BY m.created_at DESC, m.id DESC`

func scanMessage(row pgx.Row) (types.Message, error) {
	var m types.Message
	err := row.Scan(&m.ID, &m.UUID, &m.Body, &m.Created,
		&m.Author.ID, &m.Author.Username, &m.Author.Email, &m.Author.Created,
		&m.Room.ID, &m.Room.UUID, &m.Room.Name, &m.Room.TopicName)
	m.RoomID = m.Room.ID
	return m, err
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
	err := pgx.BeginFunc(ctx, a.db, func(tx pgx.Tx) error {
		var id int
		err := tx.QueryRow(ctx,
			`INSERT INTO messages (uuid, room_id, user_id, body) VALUES ($1, $2, $3, $4) RETURNING id`,
			uuid.NewString(), roomID, authorID, body).Scan(&id)
		if err != nil {
			if isForeignKeyViolation(err) {
				return store.ErrNotFound
			}
			return fmt.Errorf("failed to create message: %w", err)
		}

		if err := participantAdd(ctx, tx, roomID, authorID); err != nil {
			return err
		}

		m, err := scanMessage(tx.QueryRow(ctx, messageSelect+` WHERE m.id = $1`, id))
		if err != nil {
			return notFound(err, "message")
		}
		msg = &m
		return nil
	})
	return msg, err
}

func (a *adapter) MessageGet(ctx context.Context, uuid string) (*types.Message, error) {
	m, err := scanMessage(a.db.QueryRow(ctx, messageSelect+` WHERE m.uuid = $1`, uuid))
	if err != nil {
		return nil, notFound(err, "message")
	}
	return &m, nil
}

func (a *adapter) MessageDelete(ctx context.Context, uuid string) error {
	tag, err := a.db.Exec(ctx, `DELETE FROM messages WHERE uuid = $1`, uuid)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (a *adapter) selectMessages(ctx context.Context, query string, args ...interface{}) ([]types.Message, error) {
	rows, err := a.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	messages := []types.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (a *adapter) MessagesForRoom(ctx context.Context, roomID int) ([]types.Message, error) {
	return a.selectMessages(ctx, messageSelect+` WHERE m.room_id = $1`+messageOrder, roomID)
}

func (a *adapter) MessagesFilter(ctx context.Context, q string) ([]types.Message, error) {
	return a.selectMessages(ctx, messageSelect+` WHERE strpos(t.name_fold, $1) > 0`+messageOrder, db.Fold(q))
}

func (a *adapter) MessagesByAuthor(ctx context.Context, userID int) ([]types.Message, error) {
	return a.selectMessages(ctx, messageSelect+` WHERE m.user_id = $1`+messageOrder, userID)
}

// Participants

func participantAdd(ctx context.Context, q querier, roomID, userID int) error {
	_, err := q.Exec(ctx,
		`INSERT INTO room_participants (room_id, user_id) VALUES ($1, $2) ON CONFLICT (room_id, user_id) DO NOTHING`,
		roomID, userID)
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
	rows, err := a.db.Query(ctx, `
		SELECT u.id, u.username, u.email, u.created_at
		  FROM room_participants p
		  JOIN users u ON u.id = p.user_id
		 WHERE p.room_id = $1
		 ORDER BY p.joined_at ASC, u.id ASC`, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	users := []types.User{}
	for rows.Next() {
		var u types.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.Created); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
