package routes

import (
	"baseroom/auth"

	"github.com/gin-gonic/gin"
)

func (s *Server) SetupWebSocketRoutes(r *gin.Engine) {
	r.GET("/ws/room/:uuid", auth.LoginRequired(), s.handleRoomSocket)
}

func (s *Server) handleRoomSocket(c *gin.Context) {
	room, err := s.Rooms.Store.RoomGet(c.Request.Context(), c.Param("uuid"))
	if err != nil {
		respondError(c, err, nil)
		return
	}
	s.Hub.Serve(c, room.UUID, auth.CurrentUser(c).Username)
}
