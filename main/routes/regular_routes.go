package routes

import (
	"baseroom/auth"
	"baseroom/rooms"
	"baseroom/store"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type messageForm struct {
	Body string `form:"body" json:"body"`
}

func (s *Server) SetupRegularRoutes(r *gin.Engine) {
	r.GET("/", s.handleHome)
	r.GET("/topics", s.handleTopics)
	r.GET("/activity", s.handleActivity)
	r.GET("/profile/:id", s.handleProfile)

	r.GET("/room/:uuid", s.handleViewRoom)
	r.POST("/room/:uuid", s.handlePostMessage)

	r.GET("/room/create", auth.LoginRequired(), s.handleRoomForm)
	r.POST("/room/create", auth.LoginRequired(), s.handleCreateRoom)
	r.GET("/room/:uuid/update", auth.LoginRequired(), s.handleEditRoom)
	r.POST("/room/:uuid/update", auth.LoginRequired(), s.handleUpdateRoom)
	r.GET("/room/:uuid/delete", auth.LoginRequired(), s.handleDeleteRoom(false))
	r.POST("/room/:uuid/delete", auth.LoginRequired(), s.handleDeleteRoom(true))
	r.GET("/message/:uuid/delete", auth.LoginRequired(), s.handleDeleteMessage(false))
	r.POST("/message/:uuid/delete", auth.LoginRequired(), s.handleDeleteMessage(true))

	// Hyphenated aliases.
	r.GET("/create-room", auth.LoginRequired(), s.handleRoomForm)
	r.POST("/create-room", auth.LoginRequired(), s.handleCreateRoom)
	r.GET("/update-room/:uuid", auth.LoginRequired(), s.handleEditRoom)
	r.POST("/update-room/:uuid", auth.LoginRequired(), s.handleUpdateRoom)
	r.GET("/delete-room/:uuid", auth.LoginRequired(), s.handleDeleteRoom(false))
	r.POST("/delete-room/:uuid", auth.LoginRequired(), s.handleDeleteRoom(true))
	r.GET("/delete-message/:uuid", auth.LoginRequired(), s.handleDeleteMessage(false))
	r.POST("/delete-message/:uuid", auth.LoginRequired(), s.handleDeleteMessage(true))
}

func (s *Server) handleHome(c *gin.Context) {
	page, err := s.Rooms.Home(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) handleTopics(c *gin.Context) {
	topics, err := s.Rooms.FilterTopics(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"topics": topics})
}

func (s *Server) handleActivity(c *gin.Context) {
	messages, err := s.Rooms.Activity(c.Request.Context())
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"room_messages": messages})
}

func (s *Server) handleProfile(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		respondError(c, store.ErrNotFound, nil)
		return
	}

	page, err := s.Rooms.Profile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) handleViewRoom(c *gin.Context) {
	page, err := s.Rooms.ViewRoom(c.Request.Context(), auth.CurrentUser(c), c.Param("uuid"))
	if errors.Is(err, store.ErrUnauthenticated) {
		// Room content is never shown to anonymous visitors.
		c.Redirect(http.StatusFound, "/")
		return
	}
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) handlePostMessage(c *gin.Context) {
	var form messageForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	roomUUID := c.Param("uuid")
	if _, err := s.Rooms.PostMessage(c.Request.Context(), auth.CurrentUser(c), roomUUID, form.Body); err != nil {
		respondError(c, err, gin.H{"form": form})
		return
	}
	c.Redirect(http.StatusFound, "/room/"+roomUUID)
}

func (s *Server) roomFormContext(c *gin.Context, form rooms.RoomInput) (gin.H, error) {
	topics, err := s.Rooms.FilterTopics(c.Request.Context(), "")
	if err != nil {
		return nil, err
	}
	return gin.H{"form": form, "topics": topics}, nil
}

func (s *Server) handleRoomForm(c *gin.Context) {
	page, err := s.roomFormContext(c, rooms.RoomInput{})
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) handleCreateRoom(c *gin.Context) {
	var form rooms.RoomInput
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	if _, err := s.Rooms.CreateRoom(c.Request.Context(), auth.CurrentUser(c), form); err != nil {
		page, _ := s.roomFormContext(c, form)
		respondError(c, err, page)
		return
	}
	c.Redirect(http.StatusFound, "/")
}

func (s *Server) handleEditRoom(c *gin.Context) {
	room, err := s.Rooms.EditRoom(c.Request.Context(), auth.CurrentUser(c), c.Param("uuid"))
	if err != nil {
		respondError(c, err, nil)
		return
	}

	page, err := s.roomFormContext(c, rooms.RoomInput{
		Topic:       room.Topic.Name,
		Name:        room.Name,
		Description: room.Description,
	})
	if err != nil {
		respondError(c, err, nil)
		return
	}
	page["room"] = room
	c.JSON(http.StatusOK, page)
}

func (s *Server) handleUpdateRoom(c *gin.Context) {
	var form rooms.RoomInput
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	if _, err := s.Rooms.UpdateRoom(c.Request.Context(), auth.CurrentUser(c), c.Param("uuid"), form); err != nil {
		page, _ := s.roomFormContext(c, form)
		respondError(c, err, page)
		return
	}
	c.Redirect(http.StatusFound, "/")
}

// handleDeleteRoom serves both steps: the GET confirmation and the POST delete.
func (s *Server) handleDeleteRoom(confirmed bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		room, err := s.Rooms.DeleteRoom(c.Request.Context(), auth.CurrentUser(c), c.Param("uuid"), confirmed)
		if err != nil {
			respondError(c, err, nil)
			return
		}
		if confirmed {
			c.Redirect(http.StatusFound, "/")
			return
		}
		c.JSON(http.StatusOK, gin.H{"obj": room, "confirm": "Are you sure you want to delete \"" + room.Name + "\"?"})
	}
}

func (s *Server) handleDeleteMessage(confirmed bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		msg, err := s.Rooms.DeleteMessage(c.Request.Context(), auth.CurrentUser(c), c.Param("uuid"), confirmed)
		if err != nil {
			respondError(c, err, nil)
			return
		}
		if confirmed {
			c.Redirect(http.StatusFound, "/")
			return
		}
		c.JSON(http.StatusOK, gin.H{"obj": msg, "confirm": "Are you sure you want to delete \"" + msg.Body + "\"?"})
	}
}
