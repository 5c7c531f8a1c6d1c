package routes

import (
	"baseroom/auth"
	"baseroom/types"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func (s *Server) SetupAuthRoutes(r *gin.Engine) {
	r.GET("/login", s.handleLoginPage)
	r.POST("/login", s.handleLogin)
	r.GET("/register", s.handleRegisterPage)
	r.POST("/register", s.handleRegister)
	r.GET("/logout", s.handleLogout)
	r.POST("/logout", s.handleLogout)

	r.GET("/update-user", auth.LoginRequired(), s.handleProfileForm)
	r.POST("/update-user", auth.LoginRequired(), s.handleUpdateUser)
}

func (s *Server) handleLoginPage(c *gin.Context) {
	if auth.CurrentUser(c) != nil {
		c.Redirect(http.StatusFound, "/")
		return
	}
	c.JSON(http.StatusOK, gin.H{"page": "login", "next": safeNext(c.Query("next"))})
}

func (s *Server) handleLogin(c *gin.Context) {
	if auth.CurrentUser(c) != nil {
		c.Redirect(http.StatusFound, "/")
		return
	}

	var form auth.LoginInput
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	user, err := s.Auth.Login(c.Request.Context(), form)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		respondError(c, err, nil)
		return
	}

	if !s.startSession(c, user) {
		return
	}
	next := c.Query("next")
	if next == "" {
		next = c.PostForm("next")
	}
	c.Redirect(http.StatusFound, safeNext(next))
}

func (s *Server) handleRegisterPage(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"page": "register"})
}

func (s *Server) handleRegister(c *gin.Context) {
	var form auth.RegisterInput
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	user, err := s.Auth.Register(c.Request.Context(), form)
	if err != nil {
		form.Password1, form.Password2 = "", ""
		respondError(c, err, gin.H{"form": form})
		return
	}

	if !s.startSession(c, user) {
		return
	}
	c.Redirect(http.StatusFound, "/")
}

func (s *Server) handleLogout(c *gin.Context) {
	auth.ClearSession(c, s.SecureCookies)
	c.Redirect(http.StatusFound, "/")
}

func (s *Server) handleProfileForm(c *gin.Context) {
	user := auth.CurrentUser(c)
	c.JSON(http.StatusOK, gin.H{"form": auth.ProfileInput{Username: user.Username, Email: user.Email}})
}

func (s *Server) handleUpdateUser(c *gin.Context) {
	var form auth.ProfileInput
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	user, err := s.Auth.UpdateProfile(c.Request.Context(), auth.CurrentUser(c), form)
	if err != nil {
		respondError(c, err, gin.H{"form": form})
		return
	}
	c.Redirect(http.StatusFound, "/profile/"+strconv.Itoa(user.ID))
}

// startSession sets the session cookie for user. It writes the error response
// itself and reports false when no token could be issued.
func (s *Server) startSession(c *gin.Context, user *types.User) bool {
	token, err := s.Auth.IssueToken(user)
	if err != nil {
		respondError(c, err, nil)
		return false
	}
	auth.SetSession(c, token, int(s.Auth.TTL.Seconds()), s.SecureCookies)
	return true
}
