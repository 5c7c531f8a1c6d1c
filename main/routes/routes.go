package routes

import (
	"baseroom/auth"
	"baseroom/chatroom"
	"baseroom/logs"
	"baseroom/metrics"
	"baseroom/rooms"
	"baseroom/store"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

// Server carries the collaborators every handler needs.
type Server struct {
	Rooms         *rooms.Controller
	Auth          *auth.Service
	Hub           *chatroom.Hub
	Metrics       *metrics.Metrics
	SecureCookies bool
}

// Setup installs the shared middleware and every route on r.
func (s *Server) Setup(r *gin.Engine) {
	r.Use(s.Metrics.Middleware())
	r.Use(s.Auth.SessionMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if s.Metrics != nil {
		r.GET("/metrics", gin.WrapH(s.Metrics.Handler()))
	}

	s.SetupAuthRoutes(r)
	s.SetupRegularRoutes(r)
	s.SetupAPIRoutes(r)
	s.SetupWebSocketRoutes(r)
}

func loginURL(c *gin.Context) string {
	return "/login?next=" + url.QueryEscape(c.Request.URL.RequestURI())
}

// safeNext only follows local redirect targets.
func safeNext(next string) string {
	if strings.HasPrefix(next, "/") && !strings.HasPrefix(next, "//") && !strings.HasPrefix(next, "/\\") {
		return next
	}
	return "/"
}

// respondError maps the store error taxonomy onto HTTP. form, when not nil, is
// echoed back so the caller can show the submitted input next to the error.
func respondError(c *gin.Context, err error, form gin.H) {
	var verr *store.ValidationError
	switch {
	case errors.As(err, &verr):
		body := gin.H{"error": verr.Message, "field": verr.Field}
		for k, v := range form {
			body[k] = v
		}
		c.JSON(http.StatusBadRequest, body)
	case errors.Is(err, store.ErrUnauthenticated):
		c.Redirect(http.StatusFound, loginURL(c))
	case errors.Is(err, store.ErrPermissionDenied):
		c.String(http.StatusForbidden, "You are not allowed for this action")
	case errors.Is(err, rooms.ErrRateLimited):
		c.String(http.StatusTooManyRequests, "Too many messages. Try again shortly.")
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	default:
		logs.Error.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
