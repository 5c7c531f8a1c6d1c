package routes

import (
	"baseroom/types"
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// roomRecord is the flat API shape of a room: related rows by id only.
type roomRecord struct {
	ID           int       `json:"id"`
	UUID         string    `json:"uuid"`
	Host         int       `json:"host"`
	Topic        int       `json:"topic"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Participants []int     `json:"participants"`
	Updated      time.Time `json:"updated"`
	Created      time.Time `json:"created"`
}

func (s *Server) SetupAPIRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		api.GET("/", func(c *gin.Context) {
			c.JSON(http.StatusOK, []string{
				"GET /api",
				"GET /api/rooms",
				"GET /api/rooms/:id",
			})
		})
		api.GET("/rooms", s.handleAPIRooms)
		api.GET("/rooms/:uuid", s.handleAPIRoom)
	}
}

func (s *Server) toRecord(ctx context.Context, room types.Room) (roomRecord, error) {
	participants, err := s.Rooms.Store.ParticipantsForRoom(ctx, room.ID)
	if err != nil {
		return roomRecord{}, err
	}
	ids := make([]int, 0, len(participants))
	for _, p := range participants {
		ids = append(ids, p.ID)
	}
	return roomRecord{
		ID:           room.ID,
		UUID:         room.UUID,
		Host:         room.Host.ID,
		Topic:        room.Topic.ID,
		Name:         room.Name,
		Description:  room.Description,
		Participants: ids,
		Updated:      room.Updated,
		Created:      room.Created,
	}, nil
}

func (s *Server) handleAPIRooms(c *gin.Context) {
	rooms, err := s.Rooms.FilterRooms(c.Request.Context(), "")
	if err != nil {
		respondError(c, err, nil)
		return
	}

	records := make([]roomRecord, 0, len(rooms))
	for _, room := range rooms {
		record, err := s.toRecord(c.Request.Context(), room)
		if err != nil {
			respondError(c, err, nil)
			return
		}
		records = append(records, record)
	}
	c.JSON(http.StatusOK, records)
}

func (s *Server) handleAPIRoom(c *gin.Context) {
	room, err := s.Rooms.Store.RoomGet(c.Request.Context(), c.Param("uuid"))
	if err != nil {
		respondError(c, err, nil)
		return
	}

	record, err := s.toRecord(c.Request.Context(), *room)
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, record)
}
