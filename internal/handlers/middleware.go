package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"

	"uk.co.dudmesh.pinboard/internal/auth"
	"uk.co.dudmesh.pinboard/internal/model"
)

const (
	userIDKey        = "userID"
	HeaderAdminToken = "X-Admin-Token"
)

func RequireUser(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := auth.BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return err
			}
			userID, err := auth.UserIDFromToken(token, secret)
			if err != nil {
				return err
			}
			c.Set(userIDKey, userID)
			return next(c)
		}
	}
}

// RequireAdmin guards operator routes. An empty token disables them.
func RequireAdmin(token string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if token == "" {
				return echo.ErrNotFound
			}
			given := c.Request().Header.Get(HeaderAdminToken)
			if subtle.ConstantTimeCompare([]byte(given), []byte(token)) != 1 {
				return echo.NewHTTPError(http.StatusForbidden, "invalid admin token")
			}
			return next(c)
		}
	}
}

func currentUserID(c echo.Context) model.UserID {
	userID, _ := c.Get(userIDKey).(model.UserID)
	return userID
}
