package auth

import (
	"baseroom/logs"
	"baseroom/store"
	"baseroom/types"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	CookieName = "auth_token"
	actorKey   = "actor"
)

// SessionMiddleware attaches the logged-in user, if any, to the request. It
// never rejects a request; LoginRequired does that.
func (s *Service) SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		fromCookie := false
		if tokenString == "" {
			tokenString, _ = c.Cookie(CookieName)
			fromCookie = true
		}
		if tokenString == "" {
			c.Next()
			return
		}

		user, err := s.Authenticate(c.Request.Context(), tokenString)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				logs.Warning.Println("session rejected:", err)
			}
			if fromCookie {
				ClearSession(c, false)
			}
			c.Next()
			return
		}

		c.Set(actorKey, user)
		c.Next()
	}
}

// LoginRequired sends anonymous callers to the login page.
func LoginRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			c.Redirect(http.StatusFound, "/login?next="+url.QueryEscape(c.Request.URL.RequestURI()))
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUser returns the request's actor, or nil for an anonymous caller.
func CurrentUser(c *gin.Context) *types.User {
	v, ok := c.Get(actorKey)
	if !ok {
		return nil
	}
	user, _ := v.(*types.User)
	return user
}

func SetSession(c *gin.Context, token string, maxAge int, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, token, maxAge, "/", "", secure, true)
}

func ClearSession(c *gin.Context, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, "", -1, "/", "", secure, true)
}
